package ui

import "github.com/charmbracelet/lipgloss"

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF0000")).
				Render

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	statusStyles = map[string]lipgloss.Style{
		"online":    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"offline":   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		"inactive":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"completed": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"failed":    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"error":     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"timeout":   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

func renderStatus(s string) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(s)
	}
	return s
}

var docStyle = lipgloss.NewStyle().Padding(1, 2)
