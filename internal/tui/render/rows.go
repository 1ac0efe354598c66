package render

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"chatroom/internal/chat"
	"chatroom/internal/i18n"
)

const (
	bodyGutter     = "│ "
	minSenderWidth = 4
)

var (
	senderStyle      = lipgloss.NewStyle().Bold(true)
	stampStyle       = lipgloss.NewStyle().Faint(true)
	gutterStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	placeholderStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("203"))
)

// RowOptions 控制消息行的渲染。
type RowOptions struct {
	// Width 是可用列数；<=0 表示不换行也不截断。
	Width    int
	Language i18n.Language
	Location *time.Location
}

// RenderRows 把派生日志映射成显示行，条目之间空一行。纯函数，无副作用。
func RenderRows(entries []chat.Entry, opts RowOptions) []string {
	if len(entries) == 0 {
		return nil
	}
	lines := make([]string, 0, len(entries)*3)
	for i, entry := range entries {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, RenderEntry(entry, opts)...)
	}
	return lines
}

// RenderEntry 渲染单条消息：标题行（发送者 + 本地化时间）以及带左边框的正文。
// 解码失败的条目渲染为占位行。
func RenderEntry(entry chat.Entry, opts RowOptions) []string {
	stamp := StampLabel(entry, opts)
	if !entry.OK() {
		label := opts.Language.Text().Unreadable
		return []string{placeholderStyle.Render(label) + " " + stampStyle.Render(stamp)}
	}

	sender := entry.Message.Sender
	if opts.Width > 0 {
		limit := opts.Width - runewidth.StringWidth(stamp) - 1
		if limit < minSenderWidth {
			limit = minSenderWidth
		}
		sender = runewidth.Truncate(sender, limit, "…")
	}
	lines := []string{senderStyle.Render(sender) + " " + stampStyle.Render(stamp)}

	bodyWidth := 0
	if opts.Width > 0 {
		bodyWidth = max(opts.Width-runewidth.StringWidth(bodyGutter), 1)
	}
	for _, line := range wrapText(strings.ReplaceAll(entry.Message.Body, "\r\n", "\n"), bodyWidth) {
		lines = append(lines, gutterStyle.Render(bodyGutter)+line)
	}
	return lines
}

// StampLabel 返回条目的显示时间；键里的时间无法解析时原样返回。
func StampLabel(entry chat.Entry, opts RowOptions) string {
	if entry.HasTime {
		return opts.Language.FormatTime(entry.Time, opts.Location)
	}
	if entry.Stamp != "" {
		return entry.Stamp
	}
	return entry.Key
}
