package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/models"
	"trackdash/backend/app/repo"
	"trackdash/backend/app/socket"
	"trackdash/backend/config"
	"trackdash/backend/global"

	"github.com/google/uuid"
)

const (
	EventCommandSent       = "command-sent"
	EventCommandError      = "command-error"
	EventCommandStatus     = "command-status-update"
	EventMediaNotification = "media-notification"
)

const CommandEmergency = "emergency"

var ErrInvalidCommand = errors.New("invalid command")

var commandTypes = map[string]bool{
	"capture-photo":  true,
	"start-video":    true,
	"stop-video":     true,
	"lock":           true,
	"alarm":          true,
	"locate":         true,
	CommandEmergency: true,
}

// CommandService records commands and plays the device side of the lifecycle:
// received after AckDelay, then completed (or failed) after CompleteDelay.
type CommandService struct {
	repo     *repo.CommandRepository
	trackers *TrackerService
	alerts   *NotificationService
	hub      *socket.Hub
	sim      config.Simulation

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewCommandService(r *repo.CommandRepository, trackers *TrackerService, alerts *NotificationService, h *socket.Hub, sim config.Simulation) *CommandService {
	return &CommandService{repo: r, trackers: trackers, alerts: alerts, hub: h, sim: sim, stop: make(chan struct{})}
}

// Issue validates and records a command in status sent. Call Start to run it.
func (s *CommandService) Issue(userID uint, req dto.CommandRequest) (*models.Command, error) {
	if req.DeviceID == "" || !commandTypes[req.CommandType] {
		return nil, fmt.Errorf("%w: %q for device %q", ErrInvalidCommand, req.CommandType, req.DeviceID)
	}
	if !s.trackers.Owns(userID, req.DeviceID) {
		return nil, fmt.Errorf("tracker %s: %w", req.DeviceID, ErrNotFound)
	}
	opts := ""
	if len(req.Options) > 0 {
		b, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("%w: options: %v", ErrInvalidCommand, err)
		}
		opts = string(b)
	}
	cmd := &models.Command{
		ID:          uuid.NewString(),
		RequestID:   req.RequestID,
		UserID:      userID,
		DeviceID:    req.DeviceID,
		CommandType: req.CommandType,
		Options:     opts,
		Status:      "sent",
	}
	if err := s.repo.Create(cmd); err != nil {
		return nil, err
	}
	global.Logger.Info().Str("command", cmd.ID).Str("type", cmd.CommandType).Str("device", cmd.DeviceID).Msg("command issued")
	return cmd, nil
}

// Emergency issues an emergency command and raises a notification for it.
func (s *CommandService) Emergency(userID uint, deviceID string) (*models.Command, error) {
	cmd, err := s.Issue(userID, dto.CommandRequest{DeviceID: deviceID, CommandType: CommandEmergency})
	if err != nil {
		return nil, err
	}
	if _, err := s.alerts.Raise(userID, deviceID, fmt.Sprintf("Emergency triggered for %s", deviceID)); err != nil {
		global.Logger.Error().Err(err).Str("device", deviceID).Msg("emergency alert")
	}
	s.Start(cmd)
	return cmd, nil
}

func (s *CommandService) List(userID uint, deviceID string) ([]dto.CommandRecord, error) {
	cmds, err := s.repo.ListByDevice(userID, deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CommandRecord, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, dto.CommandRecordFrom(c))
	}
	return out, nil
}

// Start runs the simulated device lifecycle of cmd in the background.
func (s *CommandService) Start(cmd *models.Command) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.simulate(*cmd)
	}()
}

// Close stops pending simulations and waits for them.
func (s *CommandService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *CommandService) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.stop:
		return false
	case <-t.C:
		return true
	}
}

func (s *CommandService) simulate(cmd models.Command) {
	if !s.wait(s.sim.AckDelay) {
		return
	}
	s.advance(cmd, "received", "", nil)

	if !s.wait(s.sim.CompleteDelay) {
		return
	}
	live, err := s.trackers.Live(cmd.UserID, cmd.DeviceID)
	if err != nil {
		s.advance(cmd, "failed", err.Error(), nil)
		return
	}
	if live.Status == "inactive" {
		s.advance(cmd, "failed", "device inactive", nil)
		return
	}

	var media *dto.Media
	var response any = map[string]any{"ok": true}
	switch cmd.CommandType {
	case "capture-photo":
		media = &dto.Media{Type: "photo", URL: fmt.Sprintf("%s/%s.jpg", s.sim.MediaBaseURL, cmd.ID)}
		response = media
	case "stop-video":
		media = &dto.Media{Type: "video", URL: fmt.Sprintf("%s/%s.mp4", s.sim.MediaBaseURL, cmd.ID)}
		response = media
	case "locate":
		response = live.Location
	}
	raw, _ := json.Marshal(response)
	s.advance(cmd, "completed", "", raw)

	if media != nil {
		note := dto.MediaNotification{DeviceID: cmd.DeviceID, Media: *media}
		if err := s.hub.PublishUser(cmd.UserID, EventMediaNotification, note); err != nil {
			global.Logger.Warn().Err(err).Str("command", cmd.ID).Msg("media publish failed")
		}
	}
}

func (s *CommandService) advance(cmd models.Command, status, errMsg string, response json.RawMessage) {
	if err := s.repo.UpdateStatus(cmd.ID, status, errMsg, string(response)); err != nil {
		global.Logger.Error().Err(err).Str("command", cmd.ID).Msg("update command status")
	}
	ev := dto.CommandEvent{
		RequestID:   cmd.RequestID,
		CommandType: cmd.CommandType,
		Status:      status,
		Response:    response,
		Error:       errMsg,
	}
	if err := s.hub.PublishUser(cmd.UserID, EventCommandStatus, ev); err != nil {
		global.Logger.Warn().Err(err).Str("command", cmd.ID).Msg("status publish failed")
	}
	global.Logger.Info().Str("command", cmd.ID).Str("status", status).Msg("command status")
}
