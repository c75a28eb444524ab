package progress

import "fmt"

// Phase is the position of a session in the completion state machine.
type Phase int

const (
	Pending Phase = iota
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Style classifiers for the status line.
const (
	ClassPending = ""
	ClassOK      = "ok"
	ClassFail    = "fail"
)

// Status is the single status value of a surface. Alias is meaningful only when
// Succeeded, Code only when Failed.
type Status struct {
	Phase Phase
	Alias string
	Code  int
}

// Text renders the status line. Values are substituted verbatim.
func (s Status) Text() string {
	switch s.Phase {
	case Succeeded:
		return fmt.Sprintf("Install complete. Alias '%s' is ready.", s.Alias)
	case Failed:
		return fmt.Sprintf("Install failed (exit code: %d). See logs for details.", s.Code)
	default:
		return "Waiting for installation to begin…"
	}
}

// Class is the style classifier a renderer applies to the status line.
func (s Status) Class() string {
	switch s.Phase {
	case Succeeded:
		return ClassOK
	case Failed:
		return ClassFail
	default:
		return ClassPending
	}
}

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool { return s.Phase != Pending }
