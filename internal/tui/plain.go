package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/ensigniasec/matrix-installer/internal/progress"
)

// plainRenderer writes surface changes as lines, for pipes and CI logs.
type plainRenderer struct {
	w    io.Writer
	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

func newPlainRenderer(w io.Writer) *plainRenderer {
	return &plainRenderer{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
}

func (r *plainRenderer) render(c progress.Change) {
	switch c.Kind {
	case progress.LineAppended:
		fmt.Fprintln(r.w, c.Text)
	case progress.StatusChanged:
		r.status(c.Status)
	}
}

func (r *plainRenderer) status(st progress.Status) {
	switch st.Class() {
	case progress.ClassOK:
		r.ok.Fprintln(r.w, "✅ "+st.Text())
	case progress.ClassFail:
		r.fail.Fprintln(r.w, "❌ "+st.Text())
	default:
		r.dim.Fprintln(r.w, "🚀 "+st.Text())
	}
}

// runPlain is the event loop of the line renderer. It returns closeDelay after
// a success, or when ctx ends. After a failure it keeps printing log lines until
// the source is done (or quiet) and then returns; the transcript stays in the
// terminal.
func runPlain(ctx context.Context, surface *progress.Surface, logCh chan logLineMsg, completeCh chan completionMsg, subErr error, cfg runConfig) (progress.Status, error) {
	r := newPlainRenderer(cfg.out)
	r.dim.Fprintln(r.w, cfg.title)
	r.status(surface.Status())
	if subErr != nil {
		r.fail.Fprintln(r.w, "Event channel unavailable: "+subErr.Error())
	}
	surface.OnChange(r.render)

	sourceDone := cfg.sourceDone
	var (
		closeC  <-chan time.Time
		settleC <-chan time.Time
		failed  bool
	)
	for {
		select {
		case msg := <-logCh:
			surface.AppendLog(msg.Text)
			if failed && cfg.sourceDone == nil {
				settleC = time.After(drainQuiet)
			}

		case msg := <-completeCh:
			st, ok := surface.Finalize(msg.Completion)
			if !ok {
				warnDuplicateCompletion(st, msg.Completion)
				continue
			}
			if st.Phase == progress.Succeeded {
				closeC = time.After(cfg.closeDelay)
				continue
			}
			failed = true
			if cfg.sourceDone == nil {
				settleC = time.After(drainQuiet)
			} else if sourceDone == nil {
				drainLogs(surface, logCh)
				return surface.Status(), nil
			}

		case <-sourceDone:
			// A nil channel blocks forever; done sources are not selected again.
			sourceDone = nil
			if failed {
				drainLogs(surface, logCh)
				return surface.Status(), nil
			}

		case <-settleC:
			return surface.Status(), nil

		case <-closeC:
			return surface.Status(), nil

		case <-ctx.Done():
			return surface.Status(), ctx.Err()
		}
	}
}

// drainLogs appends every log line already queued.
func drainLogs(surface *progress.Surface, logCh chan logLineMsg) {
	for {
		select {
		case msg := <-logCh:
			surface.AppendLog(msg.Text)
		default:
			return
		}
	}
}
