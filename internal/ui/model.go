package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sas2xlsx/internal/controller"
	"github.com/nconklindev/sas2xlsx/internal/converter"
	"github.com/nconklindev/sas2xlsx/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateForm state = iota
	stateFilePicker
	stateNotice
)

type field int

const (
	fieldSource field = iota
	fieldDestination
	fieldDerive
	fieldExport
	fieldCount
)

type Model struct {
	state      state
	ctl        *controller.Controller
	filepicker filepicker.Model
	destInput  textinput.Model
	spinner    spinner.Model
	focus      field
	notice     string
	result     *types.ConversionResult
	err        error
	width      int
	height     int
}

type conversionCompleteMsg controller.Outcome

// InitialModel builds the form around ctl. startDir is where the file picker
// opens; an empty value means the working directory.
func InitialModel(ctl *controller.Controller, startDir string) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{converter.SourceExt, strings.ToUpper(converter.SourceExt)}
	if startDir == "" {
		startDir, _ = os.Getwd()
	}
	fp.CurrentDirectory = startDir

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#4F9DDE"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#4F9DDE")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	ti := textinput.New()
	ti.Placeholder = "path/to/output" + converter.TargetExt
	ti.Prompt = ""
	ti.CharLimit = 4096
	ti.Width = 60
	ti.SetValue(ctl.Destination())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = FocusedStyle

	return Model{
		state:      stateForm,
		ctl:        ctl,
		filepicker: fp,
		destInput:  ti,
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - 10
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.state {
		case stateNotice:
			switch msg.String() {
			case "enter", "esc", " ":
				m.notice = ""
				m.state = stateForm
			}
			return m, nil

		case stateFilePicker:
			if msg.String() == "q" {
				m.state = stateForm
				return m, nil
			}

		case stateForm:
			return m.updateForm(msg)
		}

	case conversionCompleteMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.result = nil
			return m, nil
		}
		m.err = nil
		m.result = msg.Result
		return m, nil

	case spinner.TickMsg:
		if m.ctl.State() != controller.Running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// The picker reads directories asynchronously, so its own messages are
	// forwarded in every state. Keys only reach it while it is open.
	if _, isKey := msg.(tea.KeyMsg); isKey && m.state != stateFilePicker {
		return m, nil
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if m.state == stateFilePicker {
		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.setSource(path)
			m.state = stateForm
			return m, nil
		}
	}

	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	editing := m.focus == fieldDestination && m.destEditable()

	switch msg.String() {
	case "tab", "down":
		m.moveFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil
	}

	if editing {
		if msg.String() == "enter" {
			m.moveFocus(1)
			return m, nil
		}
		var cmd tea.Cmd
		m.destInput, cmd = m.destInput.Update(msg)
		m.ctl.SetDestination(strings.TrimSpace(m.destInput.Value()))
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ":
		if m.focus == fieldDerive {
			m.toggleDerived()
		}
	case "enter":
		switch m.focus {
		case fieldSource:
			m.state = stateFilePicker
			return m, m.filepicker.Init()
		case fieldDerive:
			m.toggleDerived()
		case fieldExport:
			return m.triggerConversion()
		}
	}

	return m, nil
}

func (m *Model) destEditable() bool {
	return !m.ctl.DerivedPathPolicy()
}

// moveFocus steps through the form fields, skipping the destination while it
// is derived from the source.
func (m *Model) moveFocus(step int) {
	for {
		m.focus = (m.focus + field(step) + fieldCount) % fieldCount
		if m.focus != fieldDestination || m.destEditable() {
			break
		}
	}

	if m.focus == fieldDestination {
		m.prefillDestination()
		m.destInput.Focus()
	} else {
		m.destInput.Blur()
	}
}

func (m *Model) setSource(path string) {
	m.ctl.SetSource(path)
	m.destInput.SetValue(m.ctl.Destination())
	m.err = nil
	m.result = nil
}

func (m *Model) toggleDerived() {
	derived := !m.ctl.DerivedPathPolicy()
	m.ctl.SetDerivedPathPolicy(derived)
	if !derived {
		m.prefillDestination()
	}
	m.destInput.SetValue(m.ctl.Destination())
}

// prefillDestination offers <source dir>/<source base>.xlsx when no
// destination has been chosen yet.
func (m *Model) prefillDestination() {
	src := m.ctl.Source()
	if m.ctl.Destination() != "" || src == "" {
		return
	}
	m.ctl.SetDestination(filepath.Join(filepath.Dir(src), converter.SuggestedName(src)))
	m.destInput.SetValue(m.ctl.Destination())
	m.destInput.CursorEnd()
}

func (m Model) triggerConversion() (Model, tea.Cmd) {
	if !m.ctl.DerivedPathPolicy() {
		m.ctl.SetDestination(converter.WithTargetExt(m.ctl.Destination()))
		m.destInput.SetValue(m.ctl.Destination())
	}

	outcomes, err := m.ctl.Trigger()

	var missing *controller.MissingInputError
	switch {
	case errors.As(err, &missing):
		m.notice = missing.Message
		m.state = stateNotice
		return m, nil
	case errors.Is(err, controller.ErrBusy):
		return m, nil
	case err != nil:
		m.err = err
		return m, nil
	}

	m.err = nil
	m.result = nil
	m.destInput.SetValue(m.ctl.Destination())

	return m, tea.Batch(waitForOutcome(outcomes), m.spinner.Tick)
}

func waitForOutcome(outcomes <-chan controller.Outcome) tea.Cmd {
	return func() tea.Msg {
		o, ok := <-outcomes
		if !ok {
			return nil
		}
		return conversionCompleteMsg(o)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateNotice:
		return m.viewNotice()
	}
	return m.viewForm()
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Choose SAS file to export"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Only " + converter.SourceExt + " files are listed"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("enter: select • esc/h: up a directory • q: back"))

	return s.String()
}

func (m Model) viewNotice() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("Missing SAS File"))
	s.WriteString("\n\n")
	s.WriteString(m.notice)
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press enter to continue"))

	return NoticeBoxStyle.Render(s.String())
}

func (m Model) viewForm() string {
	snap := m.ctl.Snapshot()
	running := snap.State == controller.Running

	var s strings.Builder

	s.WriteString(TitleStyle.Render("Export SAS"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Convert a SAS dataset to an Excel workbook"))
	s.WriteString("\n\n")

	source := snap.Source
	if source == "" {
		source = DisabledStyle.Render("(none) press enter to browse")
	} else {
		source = m.truncate(source)
	}
	s.WriteString(m.row(fieldSource, "SAS file:", source))
	s.WriteString("\n")

	var dest string
	if snap.Derived {
		dest = DisabledStyle.Render(m.truncate(snap.Destination))
	} else {
		dest = m.destInput.View()
	}
	s.WriteString(m.row(fieldDestination, "Excel file:", dest))
	s.WriteString("\n\n")

	checked := "[ ]"
	if snap.Derived {
		checked = "[x]"
	}
	checkbox := fmt.Sprintf("%s Export with same path and name (but %s)", checked, converter.TargetExt)
	if m.focus == fieldDerive {
		checkbox = FocusedStyle.Render("> " + checkbox)
	} else {
		checkbox = "  " + checkbox
	}
	s.WriteString(checkbox)
	s.WriteString("\n\n")

	var button string
	switch {
	case running:
		button = ButtonDisabledStyle.Render("Export")
	case m.focus == fieldExport:
		button = ButtonFocusedStyle.Render("Export")
	default:
		button = ButtonStyle.Render("Export")
	}
	s.WriteString("  " + button)
	s.WriteString("\n\n")

	s.WriteString(m.viewStatus(snap))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("tab/↑/↓: move • enter: browse/export • space: toggle • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewStatus(snap controller.Snapshot) string {
	switch snap.State {
	case controller.Running:
		return m.spinner.View() + " " + snap.State.String()
	case controller.Done:
		line := SuccessStyle.Render(snap.State.String())
		if m.result != nil {
			line += fmt.Sprintf(" %d rows, %d columns → %s", m.result.RowsWritten, len(m.result.Columns), m.truncate(m.result.OutputFile))
		}
		return line
	case controller.Failed:
		return ErrorStyle.Render(fmt.Sprintf("%s: %v", snap.State, snap.Err))
	}
	if m.err != nil {
		return ErrorStyle.Render(m.err.Error())
	}
	return ""
}

func (m Model) row(f field, label, value string) string {
	cursor := "  "
	labelStyle := LabelStyle
	if m.focus == f {
		cursor = FocusedStyle.Render("> ")
		labelStyle = LabelFocusedStyle
	}
	return cursor + labelStyle.Render(label) + value
}

// truncate shortens long paths from the left to fit the window, counting
// runes so multi-byte names are never cut mid-character.
func (m Model) truncate(path string) string {
	maxPathLen := m.width - 24
	if maxPathLen < 30 {
		maxPathLen = 30
	}
	runes := []rune(path)
	if len(runes) > maxPathLen {
		return "..." + string(runes[len(runes)-maxPathLen+3:])
	}
	return path
}
