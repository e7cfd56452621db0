package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trackdash/console/internal/command"
)

type FormState int

const (
	StateSelecting FormState = iota
	StateFilling
)

type cmdItem struct {
	title, desc string
	index       int
}

func (i cmdItem) Title() string       { return i.title }
func (i cmdItem) Description() string { return i.desc }
func (i cmdItem) FilterValue() string { return i.title }

// commandDoneMsg carries the result of a submitted command.
type commandDoneMsg struct {
	Log string
	Err error
}

type CommandDef struct {
	Name        string
	Description string
	Fields      []FieldDef
	REST        bool
}

type FieldDef struct {
	Name        string
	Placeholder string
	Required    bool
	Default     string
	Int         bool
}

var availableCommands = []CommandDef{
	{Name: command.TypeLocate, Description: "Request an immediate position fix"},
	{
		Name:        command.TypeCapturePhoto,
		Description: "Take a photo on the device",
		Fields:      []FieldDef{{Name: "camera", Placeholder: "front or back", Default: "back"}},
	},
	{
		Name:        command.TypeStartVideo,
		Description: "Start recording video",
		Fields: []FieldDef{
			{Name: "camera", Placeholder: "front or back", Default: "back"},
			{Name: "maxSeconds", Placeholder: "Maximum length in seconds", Default: "60", Int: true},
		},
	},
	{Name: command.TypeStopVideo, Description: "Stop the current recording"},
	{
		Name:        command.TypeAlarm,
		Description: "Sound the device alarm",
		Fields:      []FieldDef{{Name: "seconds", Placeholder: "Duration in seconds", Default: "30", Int: true}},
	},
	{
		Name:        command.TypeLock,
		Description: "Lock the device with a message",
		Fields:      []FieldDef{{Name: "message", Placeholder: "Lock screen message"}},
	},
	{Name: "emergency", Description: "Raise an emergency for this tracker", REST: true},
}

type CommandFormModel struct {
	Ctrl        *command.Controller
	State       FormState
	List        list.Model
	Inputs      []textinput.Model
	Focused     int
	SelectedCmd int
}

func NewCommandFormModel(ctrl *command.Controller, width, height int) CommandFormModel {
	items := make([]list.Item, 0, len(availableCommands))
	for i, c := range availableCommands {
		items = append(items, cmdItem{title: c.Name, desc: c.Description, index: i})
	}
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Commands"
	l.SetShowHelp(false)
	return CommandFormModel{Ctrl: ctrl, State: StateSelecting, List: l}
}

func (m *CommandFormModel) initInputs() {
	def := availableCommands[m.SelectedCmd]
	m.Inputs = make([]textinput.Model, len(def.Fields))
	for i, f := range def.Fields {
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.CharLimit = 128
		ti.SetValue(f.Default)
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.Focused = 0
}

func (m CommandFormModel) Update(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	var cmd tea.Cmd
	if m.State == StateSelecting {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "enter" {
				if it, ok := m.List.SelectedItem().(cmdItem); ok {
					m.SelectedCmd = it.index
					if len(availableCommands[it.index].Fields) == 0 {
						return m, m.submit(nil)
					}
					m.State = StateFilling
					m.initInputs()
					return m, textinput.Blink
				}
			}
		case tea.WindowSizeMsg:
			m.List.SetWidth(msg.Width)
			m.List.SetHeight(msg.Height)
		}
		m.List, cmd = m.List.Update(msg)
		return m, cmd
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.State = StateSelecting
			return m, nil
		case "enter":
			if m.Focused == len(m.Inputs)-1 {
				opts, err := buildOptions(availableCommands[m.SelectedCmd], values(m.Inputs))
				if err != nil {
					return m, func() tea.Msg { return commandDoneMsg{Err: err} }
				}
				m.State = StateSelecting
				return m, m.submit(opts)
			}
			m.focus(m.Focused + 1)
			return m, nil
		case "tab", "down":
			m.focus(m.Focused + 1)
			return m, nil
		case "shift+tab", "up":
			m.focus(m.Focused - 1)
			return m, nil
		}
	}
	if m.Focused < len(m.Inputs) {
		m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
	}
	return m, cmd
}

func (m *CommandFormModel) focus(i int) {
	n := len(m.Inputs)
	if n == 0 {
		return
	}
	m.Focused = (i + n) % n
	for j := range m.Inputs {
		if j == m.Focused {
			m.Inputs[j].Focus()
		} else {
			m.Inputs[j].Blur()
		}
	}
}

func (m CommandFormModel) submit(opts map[string]any) tea.Cmd {
	def := availableCommands[m.SelectedCmd]
	ctrl := m.Ctrl
	return func() tea.Msg {
		if def.REST {
			ctx, cancel := defaultContext()
			defer cancel()
			rec, err := ctrl.Emergency(ctx)
			if err != nil {
				return commandDoneMsg{Err: fmt.Errorf("%s: %w", def.Name, err)}
			}
			return commandDoneMsg{Log: fmt.Sprintf("%s accepted (%s)", def.Name, rec.ID)}
		}
		c := ctrl.Dispatch(def.Name, opts)
		if c.Status == command.StatusError {
			return commandDoneMsg{Err: fmt.Errorf("%s: %s", def.Name, c.Error)}
		}
		return commandDoneMsg{Log: fmt.Sprintf("%s -> %s", def.Name, c.Status)}
	}
}

func values(inputs []textinput.Model) []string {
	out := make([]string, len(inputs))
	for i := range inputs {
		out[i] = strings.TrimSpace(inputs[i].Value())
	}
	return out
}

// buildOptions turns form values into the command options payload.
func buildOptions(def CommandDef, vals []string) (map[string]any, error) {
	opts := make(map[string]any, len(def.Fields))
	for i, f := range def.Fields {
		v := ""
		if i < len(vals) {
			v = vals[i]
		}
		if v == "" {
			if f.Required {
				return nil, fmt.Errorf("%s is required", f.Name)
			}
			continue
		}
		if f.Int {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", f.Name)
			}
			opts[f.Name] = n
			continue
		}
		opts[f.Name] = v
	}
	return opts, nil
}

func (m CommandFormModel) View() string {
	if m.State == StateSelecting {
		return m.List.View()
	}
	def := availableCommands[m.SelectedCmd]
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render("Parameters: "+def.Name) + "\n\n")
	for i, f := range def.Fields {
		label := f.Name
		if f.Required {
			label += " *"
		}
		st := labelStyle
		if i == m.Focused {
			st = focusedStyle.Bold(true)
		}
		s.WriteString(st.Render(label) + "\n" + m.Inputs[i].View() + "\n\n")
	}
	s.WriteString(blurredStyle.Render("enter on last field: send  esc: back"))
	return s.String()
}
