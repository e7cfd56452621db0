package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"trackdash/console/internal/logger"
	"trackdash/console/internal/service"
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateDetail
	stateNotifications
)

type RootModel struct {
	App       *service.App
	State     state
	Login     LoginModel
	Dashboard DashboardModel
	Detail    DetailModel
	Notifs    NotificationsModel

	prev     state
	started  bool
	quitting bool
	width    int
	height   int
}

// NewRootModel starts at the login form when needLogin is set, otherwise
// straight at the tracker list.
func NewRootModel(app *service.App, needLogin bool) RootModel {
	m := RootModel{
		App:       app,
		State:     stateDashboard,
		Login:     NewLoginModel(app),
		Dashboard: NewDashboardModel(app, 24),
		Notifs:    NewNotificationsModel(app.Notifications),
		height:    24,
	}
	if needLogin {
		m.State = stateLogin
	}
	return m
}

func (m RootModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitFor(m.App.Live.Updates(), srcLive),
		waitFor(m.App.Notifications.Updates(), srcNotifications),
		waitFor(m.App.Playback.Updates(), srcPlayback),
	}
	if m.State == stateLogin {
		cmds = append(cmds, m.Login.Init())
	} else {
		cmds = append(cmds, m.loadTrackers())
	}
	return tea.Batch(cmds...)
}

func (m RootModel) loadTrackers() tea.Cmd {
	app := m.App
	return func() tea.Msg {
		ctx, cancel := requestContext(app)
		defer cancel()
		return trackersLoadedMsg{err: app.LoadTrackers(ctx)}
	}
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.Dashboard.Table.SetHeight(max(msg.Height-10, 5))
		if m.State == stateDetail {
			var cmd tea.Cmd
			m.Detail, cmd = m.Detail.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}

	case refreshMsg:
		switch msg.src {
		case srcLive:
			cmds = append(cmds, waitFor(m.App.Live.Updates(), srcLive))
		case srcNotifications:
			cmds = append(cmds, waitFor(m.App.Notifications.Updates(), srcNotifications))
		case srcPlayback:
			cmds = append(cmds, waitFor(m.App.Playback.Updates(), srcPlayback))
		}

	case loggedInMsg:
		m.State = stateDashboard
		return m, m.loadTrackers()

	case trackersLoadedMsg:
		if msg.err != nil {
			logger.Warnf("Loading trackers: %v", msg.err)
		}
		if !m.started {
			m.started = true
			m.App.Start(context.Background())
		}

	case trackerSelectedMsg:
		if err := m.App.Store.Select(msg.id); err != nil {
			m.Dashboard.Err = err
			return m, nil
		}
		m.Detail = NewDetailModel(m.App, msg.id, m.width, m.height)
		m.State = stateDetail
		return m, m.Detail.Init()

	case reconciledMsg:
		m.Notifs, _ = m.Notifs.Update(msg)
		if msg.err != nil {
			m.Dashboard.Err = msg.err
		}
		return m, nil

	case backToDashboardMsg:
		m.Detail.Close()
		m.State = stateDashboard
		m.Dashboard.refresh()
		return m, nil
	}

	switch m.State {
	case stateLogin:
		var cmd tea.Cmd
		m.Login, cmd = m.Login.Update(msg)
		cmds = append(cmds, cmd)

	case stateDashboard:
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "q":
				return m.quit()
			case "n":
				m.prev = stateDashboard
				m.State = stateNotifications
				m.Notifs = m.Notifs.Open()
				return m, tea.Batch(cmds...)
			}
		}
		var cmd tea.Cmd
		m.Dashboard, cmd = m.Dashboard.Update(msg)
		cmds = append(cmds, cmd)

	case stateDetail:
		var cmd tea.Cmd
		m.Detail, cmd = m.Detail.Update(msg)
		cmds = append(cmds, cmd)

	case stateNotifications:
		if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "esc" || key.String() == "n") {
			m.State = m.prev
			cmds = append(cmds, m.Notifs.Close())
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.Notifs, cmd = m.Notifs.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m RootModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.State == stateDetail {
		m.Detail.Close()
	}
	return m, tea.Quit
}

func (m RootModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return docStyle.Render(m.Login.View())
	case stateDetail:
		return m.Detail.View()
	case stateNotifications:
		return docStyle.Render(m.Notifs.View())
	}
	return docStyle.Render(m.Dashboard.View())
}
