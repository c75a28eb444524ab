// Package progress holds the state of the install progress surface: an
// append-only transcript and a one-shot completion status.
package progress

import (
	"strings"

	"github.com/ensigniasec/matrix-installer/internal/events"
)

// lineEndings maps every line-ending convention to "\n". "\r\n" is listed
// first so it wins over a lone "\r" at the same position.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n") //nolint:gochecknoglobals // stateless replacer.

// ChangeKind tells listeners what changed.
type ChangeKind int

const (
	LineAppended ChangeKind = iota
	StatusChanged
)

// Change is passed to listeners after each mutation. Text is the normalized
// payload for LineAppended, without its terminator.
type Change struct {
	Kind   ChangeKind
	Text   string
	Status Status
}

// Listener observes surface changes. Listeners run synchronously on the
// goroutine that mutated the surface.
type Listener func(Change)

// Surface is not safe for concurrent use; it is owned by one event loop.
type Surface struct {
	transcript strings.Builder
	lines      int
	status     Status
	listeners  []Listener
}

// NewSurface returns a surface with an empty transcript in the Pending phase.
func NewSurface() *Surface {
	return &Surface{}
}

// Normalize rewrites "\r\n" and "\r" to "\n".
func Normalize(s string) string {
	return lineEndings.Replace(s)
}

// AppendLog appends payload and exactly one terminator to the transcript. An
// empty payload produces a blank line.
func (s *Surface) AppendLog(payload string) {
	text := Normalize(payload)
	s.transcript.WriteString(text)
	s.transcript.WriteByte('\n')
	s.lines += strings.Count(text, "\n") + 1
	s.notify(Change{Kind: LineAppended, Text: text, Status: s.status})
}

// Finalize applies the one permitted transition. It returns false, leaving the
// status untouched, when the surface has already finalized.
func (s *Surface) Finalize(c events.Completion) (Status, bool) {
	if s.status.Terminal() {
		return s.status, false
	}
	if c.OK {
		s.status = Status{Phase: Succeeded, Alias: c.Alias}
	} else {
		s.status = Status{Phase: Failed, Code: c.Code}
	}
	s.notify(Change{Kind: StatusChanged, Status: s.status})
	return s.status, true
}

// Transcript returns everything appended so far.
func (s *Surface) Transcript() string { return s.transcript.String() }

// Lines is the number of terminated lines in the transcript.
func (s *Surface) Lines() int { return s.lines }

// Status returns the current status.
func (s *Surface) Status() Status { return s.status }

// OnChange registers l for every later change.
func (s *Surface) OnChange(l Listener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

func (s *Surface) notify(c Change) {
	for _, l := range s.listeners {
		l(c)
	}
}
