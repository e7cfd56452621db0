package router

import (
	"net/http"

	"trackdash/backend/app/controllers"
	"trackdash/backend/app/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Auth          *controllers.AuthController
	Admin         *controllers.AdminController
	Trackers      *controllers.TrackerController
	Commands      *controllers.CommandController
	Notifications *controllers.NotificationController
	Socket        *controllers.SocketController
}

func NewRouter(ctl Controllers, mw *middleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logging())

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.POST("/api/auth/login", ctl.Auth.Login)

	// channel; the handshake carries the bearer token
	r.GET("/ws", mw.RequireAuth(), ctl.Socket.Handle)

	api := r.Group("/api", mw.RequireAuth())
	{
		api.GET("/user/trackers", ctl.Trackers.List)
		api.PUT("/user/trackers", ctl.Trackers.Save)
		api.DELETE("/user/trackers/:id", ctl.Trackers.Delete)
		api.GET("/user/trackers/:id/live", ctl.Trackers.Live)
		api.POST("/user/trackers/:id/history", ctl.Trackers.History)

		api.POST("/devices/:id/fixes", ctl.Trackers.Ingest)
		api.POST("/devices/:id/status", ctl.Trackers.SetStatus)

		api.POST("/security/commands", ctl.Commands.Post)
		api.GET("/security/commands", ctl.Commands.List)
		api.POST("/security/emergency/:id", ctl.Commands.Emergency)

		api.GET("/notifications", ctl.Notifications.List)
		api.POST("/notifications", ctl.Notifications.Raise)
		api.POST("/notifications/mark-read", ctl.Notifications.MarkRead)
	}

	admin := r.Group("/admin", mw.RequireAdmin())
	admin.POST("/users", ctl.Admin.CreateUser)
	return r
}
