package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/matrix-installer/internal/progress"
)

// Model is the root Bubble Tea model of the progress surface. The surface it
// wraps is mutated only from Update, on the program's event loop.
type Model struct {
	surface  *progress.Surface
	viewport viewport.Model
	title    string
	width    int
	height   int

	// subscribeErr is set when the event channel could not be established; the
	// surface then stays pending.
	subscribeErr error

	closeDelay     time.Duration
	closeScheduled bool
	closing        bool

	// inbound messages from the event bridge, one queue per topic
	logCh      chan logLineMsg
	completeCh chan completionMsg

	keys keyMap
}

// NewModel constructs a Model around surface, fed by the given queues.
func NewModel(surface *progress.Surface, logCh chan logLineMsg, completeCh chan completionMsg) Model { // nolint:ireturn
	vp := viewport.New(defaultViewWidth, defaultViewHeight)
	m := Model{
		surface:    surface,
		viewport:   vp,
		title:      defaultWindowTitle,
		closeDelay: closeDelay,
		logCh:      logCh,
		completeCh: completeCh,
		keys:       newKeyMap(),
	}
	m.viewport.SetContent(m.content())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(m.title),
		m.listenForLogLines(),
		m.listenForCompletion(),
	)
}

// listenForLogLines returns a Tea command that waits for the next log line.
func (m Model) listenForLogLines() tea.Cmd {
	if m.logCh == nil {
		return nil
	}
	return func() tea.Msg {
		return <-m.logCh
	}
}

// listenForCompletion returns a Tea command that waits for a completion.
// It is re-armed after the first one so duplicates are observed and ignored.
func (m Model) listenForCompletion() tea.Cmd {
	if m.completeCh == nil {
		return nil
	}
	return func() tea.Msg {
		return <-m.completeCh
	}
}

// scheduleClose fires closeMsg once after closeDelay. It is not cancellable.
func (m Model) scheduleClose() tea.Cmd {
	return tea.Tick(m.closeDelay, func(time.Time) tea.Msg {
		return closeMsg{}
	})
}

// content is the transcript as shown in the viewport; the final terminator is
// dropped so it does not render as an extra empty row.
func (m Model) content() string {
	return strings.TrimSuffix(m.surface.Transcript(), "\n")
}

// Status returns the surface status.
func (m Model) Status() progress.Status {
	return m.surface.Status()
}
