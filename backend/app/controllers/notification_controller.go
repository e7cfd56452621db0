package controllers

import (
	"net/http"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/middleware"
	"trackdash/backend/app/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct{ Notifications *services.NotificationService }

func NewNotificationController(s *services.NotificationService) *NotificationController {
	return &NotificationController{Notifications: s}
}

func (ctl *NotificationController) List(c *gin.Context) {
	out, err := ctl.Notifications.List(middleware.GetClaims(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ctl *NotificationController) MarkRead(c *gin.Context) {
	n, err := ctl.Notifications.MarkAllRead(middleware.GetClaims(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// Raise handles POST /api/notifications; used by simulators and tests.
func (ctl *NotificationController) Raise(c *gin.Context) {
	var req dto.AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := ctl.Notifications.Raise(middleware.GetClaims(c).UserID, req.TrackerID, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NotificationFrom(*n))
}
