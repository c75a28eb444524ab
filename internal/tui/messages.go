package tui

import "github.com/ensigniasec/matrix-installer/internal/events"

// Message types for Bubble Tea update loop.

// logLineMsg carries one log-line payload, already decoded.
type logLineMsg struct{ Text string }

// completionMsg carries an install-complete payload.
type completionMsg struct{ Completion events.Completion }

// closeMsg fires once, closeDelay after a successful completion.
type closeMsg struct{}
