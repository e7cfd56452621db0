package controllers

import (
	"errors"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/middleware"
	"trackdash/backend/app/services"
	"trackdash/backend/app/socket"
	"trackdash/backend/global"
	"trackdash/network"

	"github.com/gin-gonic/gin"
)

const (
	EventSubscribeTracker = "subscribeTracker"
	EventRemoteCommand    = "remote-capture-command"
)

type SocketController struct {
	Hub      *socket.Hub
	Trackers *services.TrackerService
	Commands *services.CommandService
}

func NewSocketController(h *socket.Hub, t *services.TrackerService, cmds *services.CommandService) *SocketController {
	return &SocketController{Hub: h, Trackers: t, Commands: cmds}
}

// Handle upgrades GET /ws. Authentication already ran, so a rejected token
// never reaches the upgrade.
func (ctl *SocketController) Handle(c *gin.Context) {
	claims := middleware.GetClaims(c)
	client, err := network.Upgrade(c.Writer, c.Request)
	if err != nil {
		global.Logger.Warn().Err(err).Msg("channel upgrade")
		return
	}
	conn := ctl.Hub.Register(client, claims.UserID, c.GetHeader(network.HeaderClientType))
	defer func() {
		ctl.Hub.Unregister(conn)
		_ = client.Close()
	}()

	for {
		env, err := client.Recv()
		if err != nil {
			if errors.Is(err, network.ErrMalformedFrame) || errors.Is(err, network.ErrEmptyEvent) {
				global.Logger.Warn().Err(err).Uint("user", conn.UserID).Msg("dropped frame")
				continue
			}
			if !network.IsClosedError(err) {
				global.Logger.Debug().Err(err).Uint("user", conn.UserID).Msg("channel read")
			}
			return
		}
		ctl.dispatch(conn, env)
	}
}

func (ctl *SocketController) dispatch(conn *socket.Conn, env network.Envelope) {
	switch env.Event {
	case EventSubscribeTracker:
		id := subscribeTarget(env)
		if id == "" {
			global.Logger.Warn().Str("data", string(env.Data)).Msg("invalid subscribeTracker")
			return
		}
		if !ctl.Trackers.Owns(conn.UserID, id) {
			global.Logger.Warn().Uint("user", conn.UserID).Str("tracker", id).Msg("subscribe to foreign tracker")
			return
		}
		ctl.Hub.Subscribe(conn, id)
	case EventRemoteCommand:
		var req dto.CommandRequest
		if err := env.Decode(&req); err != nil {
			_ = conn.Send(services.EventCommandError, dto.CommandEvent{Status: "error", Error: err.Error()})
			return
		}
		cmd, err := ctl.Commands.Issue(conn.UserID, req)
		if err != nil {
			_ = conn.Send(services.EventCommandError, dto.CommandEvent{
				RequestID: req.RequestID, CommandType: req.CommandType, Status: "error", Error: err.Error(),
			})
			return
		}
		_ = conn.Send(services.EventCommandSent, dto.CommandEvent{
			RequestID: cmd.RequestID, CommandType: cmd.CommandType, Status: "sent",
		})
		ctl.Commands.Start(cmd)
	default:
		global.Logger.Debug().Str("event", env.Event).Msg("unhandled channel event")
	}
}

// subscribeTarget accepts a bare tracker id or {"trackerId": id}.
func subscribeTarget(env network.Envelope) string {
	var id string
	if err := env.Decode(&id); err == nil {
		return id
	}
	var req dto.SubscribeRequest
	if err := env.Decode(&req); err == nil {
		return req.TrackerID
	}
	return ""
}
