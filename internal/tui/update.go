package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/matrix-installer/internal/events"
	"github.com/ensigniasec/matrix-installer/internal/progress"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(x.Width, x.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(x)

	case logLineMsg:
		m.appendLog(x.Text)
		return m, m.listenForLogLines()

	case completionMsg:
		cmd := m.finalize(x.Completion)
		return m, tea.Batch(m.listenForCompletion(), cmd)

	case closeMsg:
		m.closing = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKey processes global bindings and hands the rest to the viewport.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closing = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// appendLog appends to the transcript and forces the viewport to the bottom.
func (m *Model) appendLog(text string) {
	m.surface.AppendLog(text)
	m.viewport.SetContent(m.content())
	m.viewport.GotoBottom()
}

// finalize applies a completion and returns the close command on success.
func (m *Model) finalize(c events.Completion) tea.Cmd {
	st, ok := m.surface.Finalize(c)
	if !ok {
		warnDuplicateCompletion(st, c)
		return nil
	}
	logrus.Debugf("install %s: %s", st.Phase, st.Text())
	if st.Phase != progress.Succeeded {
		return nil
	}
	m.closeScheduled = true
	return m.scheduleClose()
}

// resize fits the viewport between the header and the status area.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	atBottom := m.viewport.AtBottom()

	vpHeight := height - chromeLines
	if m.subscribeErr != nil {
		vpHeight--
	}
	if vpHeight < minViewportHeight {
		vpHeight = minViewportHeight
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// warnDuplicateCompletion logs a completion that arrived after the status became terminal.
func warnDuplicateCompletion(st progress.Status, c events.Completion) {
	logrus.Warnf("ignoring duplicate %s event (ok=%t code=%d alias=%q); status already %s",
		events.InstallComplete, c.OK, c.Code, c.Alias, st.Phase)
}
