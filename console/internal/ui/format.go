package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"

	"trackdash/console/internal/tracker"
)

func formatFix(f *tracker.Fix) string {
	if f == nil {
		return "no fix"
	}
	return fmt.Sprintf("%.5f, %.5f", f.Latitude, f.Longitude)
}

func formatAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Local().Format("2006-01-02 15:04")
}

func trackerRows(list []tracker.Tracker, selected string, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(list))
	for _, t := range list {
		mark := " "
		if t.ID == selected {
			mark = "*"
		}
		battery, updated := "-", "-"
		if t.LastFix != nil {
			battery = fmt.Sprintf("%.0f%%", t.LastFix.Battery)
			updated = formatAge(t.LastFix.Timestamp, now)
		}
		rows = append(rows, table.Row{mark, t.ID, t.Name, string(t.Type), string(t.Status), battery, updated})
	}
	return rows
}
