package tui

import (
	"strings"

	"github.com/ensigniasec/matrix-installer/internal/progress"
)

func (m Model) View() string {
	if m.closing {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(renderStatus(m.surface.Status()))
	if m.subscribeErr != nil {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render("Event channel unavailable: " + m.subscribeErr.Error()))
	}
	b.WriteString("\n")
	b.WriteString(renderFooter())
	return b.String()
}

func renderStatus(st progress.Status) string {
	switch st.Class() {
	case progress.ClassOK:
		return okStyle.Render("✅ " + st.Text())
	case progress.ClassFail:
		return failStyle.Render("❌ " + st.Text())
	default:
		return pendingStyle.Render("🚀 " + st.Text())
	}
}

func renderFooter() string {
	return footerStyle.Render("↑/↓ pgup/pgdn: scroll • g/G: top/bottom • q: close")
}
