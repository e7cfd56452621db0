package controllers

import (
	"net/http"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/middleware"
	"trackdash/backend/app/services"

	"github.com/gin-gonic/gin"
)

type TrackerController struct{ Trackers *services.TrackerService }

func NewTrackerController(t *services.TrackerService) *TrackerController {
	return &TrackerController{Trackers: t}
}

// List handles GET /api/user/trackers.
func (ctl *TrackerController) List(c *gin.Context) {
	out, err := ctl.Trackers.List(middleware.GetClaims(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Save handles PUT /api/user/trackers.
func (ctl *TrackerController) Save(c *gin.Context) {
	var in dto.Tracker
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := ctl.Trackers.Save(middleware.GetClaims(c).UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ctl *TrackerController) Delete(c *gin.Context) {
	if err := ctl.Trackers.Delete(middleware.GetClaims(c).UserID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Live handles GET /api/user/trackers/:id/live.
func (ctl *TrackerController) Live(c *gin.Context) {
	out, err := ctl.Trackers.Live(middleware.GetClaims(c).UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// History handles POST /api/user/trackers/:id/history.
func (ctl *TrackerController) History(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := ctl.Trackers.History(middleware.GetClaims(c).UserID, c.Param("id"), req.From, req.To)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Ingest handles POST /api/devices/:id/fixes.
func (ctl *TrackerController) Ingest(c *gin.Context) {
	var req dto.FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := ctl.Trackers.Ingest(middleware.GetClaims(c).UserID, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, out)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles POST /api/devices/:id/status.
func (ctl *TrackerController) SetStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := ctl.Trackers.SetStatus(middleware.GetClaims(c).UserID, c.Param("id"), req.Status); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
