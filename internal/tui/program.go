package tui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/matrix-installer/internal/events"
	"github.com/ensigniasec/matrix-installer/internal/progress"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	title      string
	out        io.Writer
	plain      bool
	closeDelay time.Duration
	onReady    func()
	sourceDone <-chan struct{}
	teaOpts    []tea.ProgramOption
}

// WithTitle sets the surface title (the window title in a terminal).
func WithTitle(title string) Option { //nolint:ireturn
	return func(c *runConfig) {
		if title != "" {
			c.title = title
		}
	}
}

// WithOutput renders to w. Non-terminal writers get the plain renderer.
func WithOutput(w io.Writer) Option { //nolint:ireturn
	return func(c *runConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// WithPlain forces the line-oriented renderer even on a terminal.
func WithPlain(plain bool) Option { //nolint:ireturn
	return func(c *runConfig) {
		c.plain = c.plain || plain
	}
}

// WithCloseDelay overrides how long a successful surface stays visible.
func WithCloseDelay(d time.Duration) Option { //nolint:ireturn
	return func(c *runConfig) {
		if d > 0 {
			c.closeDelay = d
		}
	}
}

// WithOnReady runs fn in its own goroutine once both subscriptions are live.
// It is not called when subscription fails.
func WithOnReady(fn func()) Option { //nolint:ireturn
	return func(c *runConfig) {
		c.onReady = fn
	}
}

// WithSourceDone tells the plain renderer that every event has been handed
// to the subscriber once done is closed. After a failure it then prints the
// remaining queued lines and returns. Without it the renderer returns once no
// line has arrived for a short quiet period.
func WithSourceDone(done <-chan struct{}) Option { //nolint:ireturn
	return func(c *runConfig) {
		c.sourceDone = done
	}
}

// WithInputTTY reads keys from the controlling terminal, for when stdin
// carries the event stream.
func WithInputTTY() Option { //nolint:ireturn
	return func(c *runConfig) {
		c.teaOpts = append(c.teaOpts, tea.WithInputTTY())
	}
}

// Run subscribes to the log-line and install-complete topics, then shows the
// progress surface until it closes itself after success, the observer closes
// it, or ctx ends. It returns the final status. A subscription failure is not
// returned: the surface stays pending.
func Run(ctx context.Context, sub events.Subscriber, opts ...Option) (progress.Status, error) {
	cfg := runConfig{
		title:      defaultWindowTitle,
		out:        os.Stdout,
		closeDelay: closeDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.plain && !isTerminal(cfg.out) {
		cfg.plain = true
	}

	surface := progress.NewSurface()
	logCh := make(chan logLineMsg, channelBufferSize)
	completeCh := make(chan completionMsg, channelBufferSize)

	// Unblocks handlers still delivering after the surface has gone away.
	done := make(chan struct{})
	defer close(done)

	subErr := subscribe(ctx, sub, logCh, completeCh, done)
	if subErr != nil {
		logrus.Warnf("progress surface will stay pending: %v", subErr)
	} else if cfg.onReady != nil {
		go cfg.onReady()
	}

	if cfg.plain {
		return runPlain(ctx, surface, logCh, completeCh, subErr, cfg)
	}

	model := NewModel(surface, logCh, completeCh)
	model.title = cfg.title
	model.closeDelay = cfg.closeDelay
	model.subscribeErr = subErr

	teaOpts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cfg.out),
	}, cfg.teaOpts...)
	p := tea.NewProgram(model, teaOpts...)

	// Silence external logs (WARN/ERRO) during TUI to avoid corrupting the view.
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(prevOut)

	// Run TUI blocking in this goroutine.
	_, err := p.Run()
	return surface.Status(), err
}

// subscribe registers both topics, bridging payloads into the model queues.
func subscribe(ctx context.Context, sub events.Subscriber, logCh chan logLineMsg, completeCh chan completionMsg, done <-chan struct{}) error {
	err := sub.Subscribe(ctx, events.LogLine, func(raw json.RawMessage) {
		select {
		case logCh <- logLineMsg{Text: events.DecodeLogLine(raw)}:
		case <-done:
		}
	})
	if err != nil {
		return asSubscriptionError(events.LogLine, err)
	}

	err = sub.Subscribe(ctx, events.InstallComplete, func(raw json.RawMessage) {
		select {
		case completeCh <- completionMsg{Completion: events.DecodeCompletion(raw)}:
		case <-done:
		}
	})
	if err != nil {
		return asSubscriptionError(events.InstallComplete, err)
	}
	return nil
}

func asSubscriptionError(topic string, err error) error {
	var subErr events.SubscriptionError
	if errors.As(err, &subErr) {
		return err
	}
	return events.SubscriptionError{Topic: topic, Err: err}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
