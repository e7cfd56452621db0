package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"trackdash/console/internal/service"
)

type source int

const (
	srcLive source = iota
	srcCommand
	srcNotifications
	srcPlayback
)

// refreshMsg tells a view one of the core components changed.
type refreshMsg struct{ src source }

type errMsg struct{ err error }

type loggedInMsg struct{}

type trackersLoadedMsg struct{ err error }

type backToDashboardMsg struct{}

type trackerSelectedMsg struct{ id string }

// waitFor blocks on a component's update channel and re-arms on each refresh.
func waitFor(ch <-chan struct{}, src source) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return refreshMsg{src: src}
	}
}

func requestContext(app *service.App) (context.Context, context.CancelFunc) {
	if d := app.Cfg.RequestTimeout; d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return defaultContext()
}

func defaultContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}
