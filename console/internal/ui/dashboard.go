package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trackdash/console/internal/service"
)

type DashboardModel struct {
	App   *service.App
	Table table.Model
	Err   error
}

func NewDashboardModel(app *service.App, height int) DashboardModel {
	columns := []table.Column{
		{Title: " ", Width: 1},
		{Title: "ID", Width: 14},
		{Title: "Name", Width: 20},
		{Title: "Type", Width: 8},
		{Title: "Status", Width: 9},
		{Title: "Battery", Width: 8},
		{Title: "Updated", Width: 16},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(height-10, 5)),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(st)

	m := DashboardModel{App: app, Table: t}
	m.refresh()
	return m
}

func (m *DashboardModel) refresh() {
	m.Table.SetRows(trackerRows(m.App.Store.List(), m.App.Store.Selected(), time.Now()))
	m.Err = m.App.Store.Err()
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			row := m.Table.SelectedRow()
			if len(row) > 1 {
				id := row[1]
				return m, func() tea.Msg { return trackerSelectedMsg{id: id} }
			}
		case "r":
			app := m.App
			return m, func() tea.Msg {
				ctx, cancel := requestContext(app)
				defer cancel()
				return trackersLoadedMsg{err: app.LoadTrackers(ctx)}
			}
		}
	case refreshMsg, trackersLoadedMsg:
		m.refresh()
	}
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Trackers") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("enter: open  r: reload  n: notifications  q: quit"))
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
