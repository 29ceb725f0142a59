package broadcast

import (
	"fmt"
	"strings"
	"time"

	"eventbot/internal/event"
)

// FormatDigest renders the single message body sent to every subscriber:
// dated header, ordinal entries, unsubscribe footer (Telegram Markdown).
func FormatDigest(events []event.Event, now time.Time) string {
	var b strings.Builder
	b.WriteString("🖥️ *Free Tech Events*\n")
	b.WriteString("📅 " + now.Format("Monday, 02 Jan 2006") + "\n\n")
	for i, e := range events {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, escapeMarkdown(e.Title))
		fmt.Fprintf(&b, "   📆 %s\n", e.When)
		fmt.Fprintf(&b, "   🔗 %s\n", e.URL)
		fmt.Fprintf(&b, "   📌 _%s_\n\n", escapeMarkdown(e.Source))
	}
	b.WriteString("_Type /stop anytime to unsubscribe._")
	return b.String()
}

// escapeMarkdown neutralizes the classic-Markdown control characters that
// show up in provider titles and would otherwise break Telegram parsing.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")
	return r.Replace(s)
}
