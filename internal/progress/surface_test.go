package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/matrix-installer/internal/events"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lf", in: "a\nb", want: "a\nb"},
		{name: "crlf", in: "a\r\nb", want: "a\nb"},
		{name: "cr", in: "a\rb", want: "a\nb"},
		{name: "mixed", in: "a\r\nb\rc\nd", want: "a\nb\nc\nd"},
		{name: "cr cr lf", in: "a\r\r\nb", want: "a\n\nb"},
		{name: "trailing crlf", in: "done\r\n", want: "done\n"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\r")
		})
	}
}

func TestSurface_AppendLogIsOrderedConcatenation(t *testing.T) {
	t.Parallel()

	payloads := []string{"Step 1 done", "", "multi\r\nline\rpayload", "Step 2 done"}
	s := NewSurface()

	var want strings.Builder
	for _, p := range payloads {
		s.AppendLog(p)
		want.WriteString(Normalize(p))
		want.WriteString("\n")
	}

	assert.Equal(t, want.String(), s.Transcript())
	assert.Equal(t, "Step 1 done\n\nmulti\nline\npayload\nStep 2 done\n", s.Transcript())
	assert.Equal(t, 6, s.Lines())
	assert.Equal(t, Pending, s.Status().Phase)
}

func TestSurface_EmptyPayloadAppendsBlankLine(t *testing.T) {
	t.Parallel()

	s := NewSurface()
	s.AppendLog("")
	assert.Equal(t, "\n", s.Transcript())
	assert.Equal(t, 1, s.Lines())
}

func TestSurface_Finalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		event     events.Completion
		wantPhase Phase
		wantText  string
		wantClass string
	}{
		{
			name:      "success",
			event:     events.Completion{OK: true, Code: 0, Alias: "myalias"},
			wantPhase: Succeeded,
			wantText:  "Install complete. Alias 'myalias' is ready.",
			wantClass: ClassOK,
		},
		{
			name:      "failure",
			event:     events.Completion{OK: false, Code: 1, Alias: ""},
			wantPhase: Failed,
			wantText:  "Install failed (exit code: 1). See logs for details.",
			wantClass: ClassFail,
		},
		{
			name:      "success without alias renders verbatim",
			event:     events.Completion{OK: true},
			wantPhase: Succeeded,
			wantText:  "Install complete. Alias '' is ready.",
			wantClass: ClassOK,
		},
		{
			name:      "spawn failure code",
			event:     events.Completion{OK: false, Code: -1, Alias: "x"},
			wantPhase: Failed,
			wantText:  "Install failed (exit code: -1). See logs for details.",
			wantClass: ClassFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSurface()
			assert.Equal(t, "Waiting for installation to begin…", s.Status().Text())

			st, ok := s.Finalize(tt.event)
			require.True(t, ok)
			assert.Equal(t, tt.wantPhase, st.Phase)
			assert.Equal(t, tt.wantText, st.Text())
			assert.Equal(t, tt.wantClass, st.Class())
			assert.True(t, st.Terminal())
		})
	}
}

func TestSurface_FinalizeIsTerminal(t *testing.T) {
	t.Parallel()

	s := NewSurface()
	first, ok := s.Finalize(events.Completion{OK: false, Code: 2})
	require.True(t, ok)

	second, ok := s.Finalize(events.Completion{OK: true, Alias: "late"})
	assert.False(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, Failed, s.Status().Phase)
	assert.Equal(t, 2, s.Status().Code)
}

func TestSurface_ListenersObserveChanges(t *testing.T) {
	t.Parallel()

	s := NewSurface()
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })
	s.OnChange(nil)

	s.AppendLog("a\r\nb")
	s.Finalize(events.Completion{OK: true, Alias: "myalias"})
	s.Finalize(events.Completion{OK: false, Code: 9})

	require.Len(t, changes, 2)
	assert.Equal(t, Change{Kind: LineAppended, Text: "a\nb", Status: Status{}}, changes[0])
	assert.Equal(t, StatusChanged, changes[1].Kind)
	assert.Equal(t, Succeeded, changes[1].Status.Phase)
}

func TestPhase_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
