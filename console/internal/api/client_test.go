package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, register func(r *gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func staticToken(tok string) func() string { return func() string { return tok } }

func TestLoginAndBearer(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/api/auth/login", func(c *gin.Context) {
			var req loginRequest
			if err := c.ShouldBindJSON(&req); err != nil || req.Password != "secret" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"access_token": "tok-" + req.Username})
		})
		r.GET("/api/user/trackers", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer tok-alice" {
				c.Status(http.StatusUnauthorized)
				return
			}
			c.Data(http.StatusOK, "application/json", []byte(`[{"id":"t1"}]`))
		})
	})

	c := New(srv.URL, nil)
	tok, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-alice", tok)

	_, err = c.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	authed := New(srv.URL, staticToken(tok))
	raw, err := authed.Trackers(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(raw))
}

func TestStatusError(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/user/trackers/:id/live", func(c *gin.Context) {
			c.String(http.StatusNotFound, "tracker not found")
		})
	})
	_, err := New(srv.URL, nil).Live(context.Background(), "nope")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "tracker not found", se.Body)
}

func TestLive(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/user/trackers/:id/live", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"trackerId": c.Param("id"),
				"status":    "online",
				"location": gin.H{
					"latitude": 10.5, "longitude": 20.25,
					"timestamp": "2024-05-01T10:00:00Z", "battery": 80, "main": 12.4,
				},
			})
		})
	})
	snap, err := New(srv.URL, nil).Live(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", snap.TrackerID)
	assert.EqualValues(t, "online", snap.Status)
	require.NotNil(t, snap.Fix)
	assert.Equal(t, 10.5, snap.Fix.Latitude)
	assert.Equal(t, 12.4, snap.Fix.MainPower)
	assert.True(t, snap.Fix.Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestHistoryIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/api/user/trackers/:id/history", func(c *gin.Context) {
			hits.Add(1)
			var req historyRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			c.JSON(http.StatusOK, []gin.H{
				{"latitude": 1, "longitude": 1, "timestamp": req.From},
				{"latitude": 2, "longitude": 2, "timestamp": req.To},
			})
		})
	})

	c := New(srv.URL, nil, WithHistoryCache(time.Minute))
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	fixes, err := c.History(context.Background(), "t1", from, to)
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.True(t, fixes[1].Timestamp.Equal(to))

	fixes[0].Latitude = 99
	again, err := c.History(context.Background(), "t1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Latitude)
	assert.EqualValues(t, 1, hits.Load())

	_, err = c.History(context.Background(), "t2", from, to)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestCommandsAndNotifications(t *testing.T) {
	var marked atomic.Bool
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/api/security/commands", func(c *gin.Context) {
			var req CommandRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"id": "c1", "deviceId": req.DeviceID, "commandType": req.CommandType, "status": "sent"})
		})
		r.GET("/api/security/commands", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{{"id": "c1", "deviceId": c.Query("deviceId"), "commandType": "lock", "status": "completed"}})
		})
		r.POST("/api/security/emergency/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": "e1", "deviceId": c.Param("id"), "commandType": "emergency", "status": "sent"})
		})
		r.GET("/api/notifications", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"id": "n1", "message": "left home", "timestamp": 1714557600000, "read": false},
				{"id": "n2", "message": "low battery", "timestamp": "2024-05-01T09:00:00Z", "read": true},
			})
		})
		r.POST("/api/notifications/mark-read", func(c *gin.Context) {
			marked.Store(true)
			c.Status(http.StatusNoContent)
		})
	})

	c := New(srv.URL, nil)
	ctx := context.Background()

	rec, err := c.IssueCommand(ctx, CommandRequest{DeviceID: "t1", CommandType: "lock"})
	require.NoError(t, err)
	assert.Equal(t, "sent", rec.Status)
	assert.Equal(t, "t1", rec.DeviceID)

	list, err := c.Commands(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].DeviceID)

	em, err := c.Emergency(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "emergency", em.CommandType)

	ns, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.False(t, ns[0].Read)
	assert.Equal(t, int64(1714557600000), ns[0].Timestamp.UnixMilli())

	require.NoError(t, c.MarkNotificationsRead(ctx))
	assert.True(t, marked.Load())
}

func TestRateLimitHonorsContext(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/notifications", func(c *gin.Context) { c.JSON(http.StatusOK, []gin.H{}) })
	})
	c := New(srv.URL, nil, WithRateLimit(0.001, 1))
	_, err := c.Notifications(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Notifications(ctx)
	assert.Error(t, err)
}
