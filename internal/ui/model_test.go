package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nconklindev/sas2xlsx/internal/controller"
	"github.com/nconklindev/sas2xlsx/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingConverter struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (b *blockingConverter) Convert(req types.ConversionRequest) (*types.ConversionResult, error) {
	b.calls.Add(1)
	<-b.release
	if b.err != nil {
		return nil, b.err
	}
	return &types.ConversionResult{InputFile: req.SourcePath, OutputFile: req.DestinationPath}, nil
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	require.True(t, ok)
	return updated, cmd
}

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestExportWithoutSourceShowsNotice(t *testing.T) {
	conv := &blockingConverter{release: make(chan struct{})}
	ctl := controller.New(conv.Convert)
	m := InitialModel(ctl, t.TempDir())

	// source -> derive (destination is skipped while derived) -> export
	m, _ = send(t, m, keyTab)
	m, _ = send(t, m, keyTab)
	assert.Equal(t, fieldExport, m.focus)

	m, cmd := send(t, m, keyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, stateNotice, m.state)
	assert.Contains(t, m.View(), "Missing SAS File")
	assert.Contains(t, m.View(), controller.MsgMissingSource)
	assert.Equal(t, controller.Idle, ctl.State())

	m, _ = send(t, m, keyEnter)
	assert.Equal(t, stateForm, m.state)
	assert.Zero(t, conv.calls.Load())
}

func TestManualDestinationMissingShowsNotice(t *testing.T) {
	conv := &blockingConverter{release: make(chan struct{})}
	ctl := controller.New(conv.Convert, controller.WithDerivedPath(false))
	ctl.SetSource("")
	m := InitialModel(ctl, t.TempDir())

	m.focus = fieldExport
	m, _ = send(t, m, keyEnter)
	assert.Equal(t, stateNotice, m.state)
	assert.Contains(t, m.View(), controller.MsgMissingBoth)
}

func TestToggleDerivedKeepsDestination(t *testing.T) {
	dir := t.TempDir()
	ctl := controller.New((&blockingConverter{release: make(chan struct{})}).Convert)
	ctl.SetSource(filepath.Join(dir, "survey.sas7bdat"))
	m := InitialModel(ctl, dir)

	m, _ = send(t, m, keyTab)
	require.Equal(t, fieldDerive, m.focus)

	m, _ = send(t, m, keySpace)
	assert.False(t, ctl.DerivedPathPolicy())
	assert.Equal(t, filepath.Join(dir, "survey.xlsx"), ctl.Destination())
	assert.Contains(t, m.View(), "[ ] Export with same path and name")

	m, _ = send(t, m, keySpace)
	assert.True(t, ctl.DerivedPathPolicy())
	assert.Contains(t, m.View(), "[x] Export with same path and name")
}

func TestDestinationPrefilledAndEditable(t *testing.T) {
	dir := t.TempDir()
	ctl := controller.New((&blockingConverter{release: make(chan struct{})}).Convert, controller.WithDerivedPath(false))
	ctl.SetSource(filepath.Join(dir, "survey.sas7bdat"))
	require.Equal(t, "", ctl.Destination())

	m := InitialModel(ctl, dir)
	m, _ = send(t, m, keyTab)
	require.Equal(t, fieldDestination, m.focus)
	assert.Equal(t, filepath.Join(dir, "survey.xlsx"), ctl.Destination())

	m, _ = send(t, m, runes("x"))
	assert.Equal(t, filepath.Join(dir, "survey.xlsxx"), ctl.Destination())

	// q is text while editing, not quit.
	m, cmd := send(t, m, runes("q"))
	if cmd != nil {
		_, quit := cmd().(tea.QuitMsg)
		assert.False(t, quit)
	}
	assert.Equal(t, filepath.Join(dir, "survey.xlsxxq"), ctl.Destination())
}

func TestExportRunsOnceAndReportsSuccess(t *testing.T) {
	dir := t.TempDir()
	conv := &blockingConverter{release: make(chan struct{})}
	ctl := controller.New(conv.Convert)
	ctl.SetSource(filepath.Join(dir, "survey.sas7bdat"))
	m := InitialModel(ctl, dir)
	m.focus = fieldExport

	m, cmd := send(t, m, keyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, controller.Running, ctl.State())
	assert.Contains(t, m.View(), "Export in progress...")

	// A second press while running does nothing.
	m, cmd = send(t, m, keyEnter)
	assert.Nil(t, cmd)

	close(conv.release)
	assert.Eventually(t, func() bool { return ctl.State() == controller.Done }, 5*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, conv.calls.Load())

	m, _ = send(t, m, conversionCompleteMsg{
		Request: types.ConversionRequest{SourcePath: ctl.Source(), DestinationPath: ctl.Destination()},
		Result:  &types.ConversionResult{OutputFile: filepath.Join(dir, "survey.xlsx"), Columns: []string{"A", "B"}, RowsWritten: 3},
	})
	view := m.View()
	assert.Contains(t, view, "Export successful!")
	assert.Contains(t, view, "3 rows, 2 columns")
}

func TestExportFailureIsShown(t *testing.T) {
	dir := t.TempDir()
	conv := &blockingConverter{release: make(chan struct{}), err: errors.New("bad magic number")}
	close(conv.release)
	ctl := controller.New(conv.Convert)
	ctl.SetSource(filepath.Join(dir, "survey.sas7bdat"))
	m := InitialModel(ctl, dir)
	m.focus = fieldExport

	m, _ = send(t, m, keyEnter)
	assert.Eventually(t, func() bool { return ctl.State() == controller.Failed }, 5*time.Second, 10*time.Millisecond)

	view := m.View()
	assert.Contains(t, view, "Export failed")
	assert.Contains(t, view, "bad magic number")
	assert.NotContains(t, view, "Export successful!")
}

func TestQuitKeys(t *testing.T) {
	ctl := controller.New((&blockingConverter{release: make(chan struct{})}).Convert)

	for _, key := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		m := InitialModel(ctl, t.TempDir())
		_, cmd := send(t, m, key)
		require.NotNil(t, cmd)
		_, quit := cmd().(tea.QuitMsg)
		assert.True(t, quit, "key %q should quit", key.String())
	}
}

func TestPickerBackReturnsToForm(t *testing.T) {
	ctl := controller.New((&blockingConverter{release: make(chan struct{})}).Convert)
	m := InitialModel(ctl, t.TempDir())

	m, cmd := send(t, m, keyEnter)
	assert.NotNil(t, cmd)
	assert.Equal(t, stateFilePicker, m.state)

	m, _ = send(t, m, runes("q"))
	assert.Equal(t, stateForm, m.state)
	assert.Equal(t, "", ctl.Source())
}

func TestExportAppendsTargetExtension(t *testing.T) {
	dir := t.TempDir()
	conv := &blockingConverter{release: make(chan struct{})}
	close(conv.release)
	ctl := controller.New(conv.Convert, controller.WithDerivedPath(false))
	ctl.SetSource(filepath.Join(dir, "survey.sas7bdat"))
	m := InitialModel(ctl, dir)

	m, _ = send(t, m, keyTab)
	require.Equal(t, fieldDestination, m.focus)
	m.destInput.SetValue("")
	ctl.SetDestination("")
	for _, r := range filepath.Join(dir, "report.csv") {
		m, _ = send(t, m, runes(string(r)))
	}
	require.Equal(t, filepath.Join(dir, "report.csv"), ctl.Destination())

	m.focus = fieldExport
	m, cmd := send(t, m, keyEnter)
	require.NotNil(t, cmd)

	want := filepath.Join(dir, "report.csv.xlsx")
	assert.Equal(t, want, ctl.Destination())
	assert.Equal(t, want, m.destInput.Value())
	assert.Eventually(t, func() bool { return ctl.State() == controller.Done }, 5*time.Second, 10*time.Millisecond)

	// An upper-case extension is already fine.
	ctl.SetDestination(filepath.Join(dir, "REPORT.XLSX"))
	_, _ = send(t, m, keyEnter)
	assert.Equal(t, filepath.Join(dir, "REPORT.XLSX"), ctl.Destination())
}

func TestPickerListsUpperCaseExtension(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "SURVEY.SAS7BDAT")
	require.NoError(t, os.WriteFile(source, []byte("data"), 0o644))

	ctl := controller.New((&blockingConverter{release: make(chan struct{})}).Convert)
	m := InitialModel(ctl, dir)

	m, cmd := send(t, m, keyEnter)
	require.NotNil(t, cmd)
	require.Equal(t, stateFilePicker, m.state)

	// Load the directory listing, then pick the only entry.
	m, _ = send(t, m, cmd())
	m, _ = send(t, m, keyEnter)

	assert.Equal(t, stateForm, m.state)
	assert.Equal(t, source, ctl.Source())
	assert.Equal(t, filepath.Join(dir, "SURVEY.xlsx"), ctl.Destination())
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	ctl := controller.New((&blockingConverter{release: make(chan struct{})}).Convert)
	m := InitialModel(ctl, t.TempDir())

	path := "/données/études/été/résumé/année/enquête.sas7bdat"
	require.Greater(t, utf8.RuneCountInString(path), 30)

	for width := 0; width < 80; width++ {
		m.width = width
		got := m.truncate(path)
		assert.True(t, utf8.ValidString(got), "width %d: %q", width, got)
		if got != path {
			assert.True(t, strings.HasPrefix(got, "..."))
			assert.True(t, strings.HasSuffix(path, strings.TrimPrefix(got, "...")))
		}
	}

	m.width = 0
	assert.Equal(t, 30, utf8.RuneCountInString(m.truncate(path)))

	short := "/été/a.sas7bdat"
	assert.Equal(t, short, m.truncate(short))
}
