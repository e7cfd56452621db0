package controllers

import (
	"net/http"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/middleware"
	"trackdash/backend/app/services"

	"github.com/gin-gonic/gin"
)

type CommandController struct {
	Commands *services.CommandService
}

func NewCommandController(s *services.CommandService) *CommandController {
	return &CommandController{Commands: s}
}

// Post handles POST /api/security/commands.
func (ctl *CommandController) Post(c *gin.Context) {
	var req dto.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd, err := ctl.Commands.Issue(middleware.GetClaims(c).UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	ctl.Commands.Start(cmd)
	c.JSON(http.StatusAccepted, dto.CommandRecordFrom(*cmd))
}

// List handles GET /api/security/commands?deviceId=...
func (ctl *CommandController) List(c *gin.Context) {
	out, err := ctl.Commands.List(middleware.GetClaims(c).UserID, c.Query("deviceId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Emergency handles POST /api/security/emergency/:id.
func (ctl *CommandController) Emergency(c *gin.Context) {
	cmd, err := ctl.Commands.Emergency(middleware.GetClaims(c).UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.CommandRecordFrom(*cmd))
}
