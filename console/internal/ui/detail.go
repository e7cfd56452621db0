package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trackdash/console/internal/command"
	"trackdash/console/internal/live"
	"trackdash/console/internal/service"
	"trackdash/console/internal/tracker"
)

const historyWindow = time.Hour

type detailTickMsg struct{ id string }

type historyLoadedMsg struct{ err error }

// DetailModel is the live panel of one tracker with its command form.
type DetailModel struct {
	App       *service.App
	TrackerID string
	Ctrl      *command.Controller
	Form      CommandFormModel
	Log       viewport.Model

	logContent string
	width      int
	height     int
}

func NewDetailModel(app *service.App, id string, width, height int) DetailModel {
	ctrl := app.Commands(id)
	vp := viewport.New(max(width/2-8, 20), 8)
	vp.Style = lipgloss.NewStyle().PaddingLeft(1)
	return DetailModel{
		App:       app,
		TrackerID: id,
		Ctrl:      ctrl,
		Form:      NewCommandFormModel(ctrl, max(width/2-8, 30), max(height-16, 8)),
		Log:       vp,
		width:     width,
		height:    height,
	}
}

func (m DetailModel) Init() tea.Cmd {
	ctrl := m.Ctrl
	return tea.Batch(
		func() tea.Msg {
			ctx, cancel := defaultContext()
			defer cancel()
			if err := ctrl.Start(ctx); err != nil {
				return commandDoneMsg{Err: fmt.Errorf("command channel: %w", err)}
			}
			return nil
		},
		m.tick(),
	)
}

func (m DetailModel) tick() tea.Cmd {
	id := m.TrackerID
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return detailTickMsg{id: id} })
}

// Close releases the command controller's hold on the channel.
func (m DetailModel) Close() {
	m.App.Playback.Pause()
	m.Ctrl.Close()
}

func (m *DetailModel) appendLog(line string) {
	m.logContent += time.Now().Format("15:04:05") + " " + line + "\n"
	m.Log.SetContent(m.logContent)
	m.Log.GotoBottom()
}

func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case detailTickMsg:
		if msg.id != m.TrackerID {
			return m, nil
		}
		return m, m.tick()
	case commandDoneMsg:
		if msg.Err != nil {
			m.appendLog("error: " + msg.Err.Error())
		} else {
			m.appendLog(msg.Log)
		}
		return m, nil
	case historyLoadedMsg:
		if msg.err != nil {
			m.appendLog("history: " + msg.err.Error())
		} else {
			m.appendLog(fmt.Sprintf("history: %d points", m.App.Playback.Len()))
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.Log.Width = max(msg.Width/2-8, 20)
		var cmd tea.Cmd
		m.Form, cmd = m.Form.Update(tea.WindowSizeMsg{Width: max(msg.Width/2-8, 30), Height: max(msg.Height-16, 8)})
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.Form.State == StateSelecting {
				return m, func() tea.Msg { return backToDashboardMsg{} }
			}
		case "ctrl+l":
			return m, m.loadHistory()
		case "ctrl+p":
			if m.App.Playback.Playing() {
				m.App.Playback.Pause()
			} else if err := m.App.Playback.Play(context.Background()); err != nil {
				m.appendLog("playback: " + err.Error())
			}
			return m, nil
		case "ctrl+s":
			m.App.Playback.Stop()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.Form, cmd = m.Form.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m DetailModel) loadHistory() tea.Cmd {
	app, id := m.App, m.TrackerID
	return func() tea.Msg {
		ctx, cancel := requestContext(app)
		defer cancel()
		to := time.Now()
		return historyLoadedMsg{err: app.Playback.Load(ctx, id, to.Add(-historyWindow), to)}
	}
}

func (m DetailModel) liveView() string {
	var b strings.Builder
	sync := m.App.Live
	name := m.TrackerID
	if t, ok := m.App.Store.Get(m.TrackerID); ok {
		name = fmt.Sprintf("%s (%s)", t.Name, renderStatus(string(t.Status)))
	}
	b.WriteString(labelStyle.Render("Tracker: ") + name + "\n")
	b.WriteString(liveSection(sync, m.TrackerID, time.Now()))
	b.WriteString("\n")
	if cur, ok := m.Ctrl.Current(); ok {
		b.WriteString(labelStyle.Render("Command: ") + cur.Type + " " + renderStatus(string(cur.Status)) + "\n")
		if cur.Error != "" {
			b.WriteString(errorMessageStyle(cur.Error) + "\n")
		}
	}
	if m.Ctrl.Recording() {
		b.WriteString(focusedStyle.Render("● recording") + "\n")
	}

	pb := m.App.Playback
	if pb.Len() > 0 && pb.Device() == m.TrackerID {
		fix, idx, _ := pb.Current()
		state := "paused"
		if pb.Playing() {
			state = "playing"
		}
		b.WriteString(labelStyle.Render("Playback: ") + fmt.Sprintf("%s %d/%d at %s", state, idx+1, pb.Len(), fix.Timestamp.Local().Format("15:04:05")) + "\n")
	}
	return b.String()
}

// liveReader is the part of the synchronizer the detail panel renders.
type liveReader interface {
	Device() string
	State() live.State
	Latest() (tracker.Fix, bool)
	Path() []tracker.LatLng
	Err() error
}

// liveSection renders sync state and, only while the synchronizer is on id,
// its latest fix and trail.
func liveSection(sync liveReader, id string, now time.Time) string {
	var b strings.Builder
	if sync.Device() != id {
		b.WriteString(labelStyle.Render("Sync: ") + "switching\n")
		b.WriteString(labelStyle.Render("Latest: ") + "waiting for fix\n")
		return b.String()
	}
	b.WriteString(labelStyle.Render("Sync: ") + sync.State().String() + "\n")
	if fix, ok := sync.Latest(); ok {
		b.WriteString(labelStyle.Render("Latest: ") + formatFix(&fix) + "  " + formatAge(fix.Timestamp, now) + "\n")
		b.WriteString(labelStyle.Render("Battery: ") + fmt.Sprintf("%.0f%%  main %.1fV", fix.Battery, fix.MainPower) + "\n")
	} else {
		b.WriteString(labelStyle.Render("Latest: ") + "waiting for fix\n")
	}
	path := sync.Path()
	b.WriteString(labelStyle.Render("Trail: ") + fmt.Sprintf("%d points", len(path)) + "\n")
	for i := max(len(path)-5, 0); i < len(path); i++ {
		b.WriteString(fmt.Sprintf("  %.5f, %.5f\n", path[i].Lat(), path[i].Lng()))
	}
	if err := sync.Err(); err != nil {
		b.WriteString(errorMessageStyle(err.Error()) + "\n")
	}
	return b.String()
}

func (m DetailModel) View() string {
	left := panelStyle.Width(max(m.width/2-4, 30)).Render(m.liveView())
	right := lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Render(m.Form.View()),
		panelStyle.Render(m.Log.View()),
	)
	help := blurredStyle.Render("esc: back  ctrl+l: load last hour  ctrl+p: play/pause  ctrl+s: stop")
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Tracker "+m.TrackerID),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		help,
	)
}
