package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"trackdash/console/internal/notification"
)

type reconciledMsg struct{ err error }

// NotificationsModel is the dropdown; closing it reconciles read state.
type NotificationsModel struct {
	Rec    *notification.Reconciler
	Cursor int
	Err    error
}

func NewNotificationsModel(rec *notification.Reconciler) NotificationsModel {
	return NotificationsModel{Rec: rec}
}

// Open marks the dropdown open. Reconciliation happens on close only.
func (m NotificationsModel) Open() NotificationsModel {
	m.Rec.SetOpen(true)
	m.Cursor = 0
	return m
}

// Close returns the reconcile command when this call closed the dropdown.
func (m NotificationsModel) Close() tea.Cmd {
	if !m.Rec.SetOpen(false) {
		return nil
	}
	rec := m.Rec
	return func() tea.Msg {
		ctx, cancel := defaultContext()
		defer cancel()
		return reconciledMsg{err: rec.Reconcile(ctx)}
	}
}

func (m NotificationsModel) Update(msg tea.Msg) (NotificationsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Rec.Items())-1 {
				m.Cursor++
			}
		}
	case reconciledMsg:
		m.Err = msg.err
	}
	return m, nil
}

func (m NotificationsModel) View() string {
	var b strings.Builder
	items := m.Rec.Items()
	b.WriteString(titleStyle.Render(fmt.Sprintf("Notifications (%d unread)", m.Rec.Unread())) + "\n\n")
	if len(items) == 0 {
		b.WriteString(blurredStyle.Render("Nothing yet") + "\n")
	}
	now := time.Now()
	for i, n := range items {
		line := fmt.Sprintf("%-12s %s", formatAge(n.Timestamp, now), n.Message)
		if !n.Read {
			line = "• " + line
		} else {
			line = "  " + line
		}
		if i == m.Cursor {
			line = focusedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + blurredStyle.Render("esc or n: close"))
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
