package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// LogViewport 包装 bubbles viewport，记录上一次写入的行以判断内容是否真正变化。
type LogViewport struct {
	viewport.Model
	lastLines []string
	mounted   bool
}

// NewLogViewport 创建指定尺寸的视口。
func NewLogViewport(width, height int) LogViewport {
	return LogViewport{Model: viewport.New(width, height)}
}

// Resize 更新宽高，尺寸有变化时返回 true。
func (v *LogViewport) Resize(width, height int) bool {
	if v == nil {
		return false
	}
	if v.Width == width && v.Height == height {
		return false
	}
	v.Width = width
	v.Height = height
	// 尺寸变化后当前偏移可能越界，重新写入内容让 viewport 自行夹紧。
	v.SetContent(strings.Join(v.lastLines, "\n"))
	return true
}

// SetLines 写入渲染后的行，内容与上次相同则不做任何事并返回 false。
// 第一次调用总是视为变化。
func (v *LogViewport) SetLines(lines []string) bool {
	if v == nil {
		return false
	}
	if v.mounted && slices.Equal(lines, v.lastLines) {
		return false
	}
	v.mounted = true
	v.lastLines = slices.Clone(lines)
	v.SetContent(strings.Join(lines, "\n"))
	return true
}

// Lines 返回当前内容的副本。
func (v *LogViewport) Lines() []string {
	if v == nil {
		return nil
	}
	return slices.Clone(v.lastLines)
}

// HandleUpdate 代理 bubbles 的 Update，保持内部状态。
func (v *LogViewport) HandleUpdate(msg tea.Msg) tea.Cmd {
	if v == nil {
		return nil
	}
	var cmd tea.Cmd
	v.Model, cmd = v.Model.Update(msg)
	return cmd
}

// ScrollPageDown 下翻一页。
func (v *LogViewport) ScrollPageDown() {
	if v == nil {
		return
	}
	v.PageDown()
}

// ScrollPageUp 上翻一页。
func (v *LogViewport) ScrollPageUp() {
	if v == nil {
		return
	}
	v.PageUp()
}
