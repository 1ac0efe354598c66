package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"chatroom/internal/chat"
	"chatroom/internal/record"
	"chatroom/internal/tui/render"
)

// LogView 从记录快照派生有序消息日志并渲染到视口。
// 渲染是快照的纯函数；滚动到底部是渲染后的副作用，只在日志变化、首次挂载或尺寸变化时执行。
type LogView struct {
	viewport render.LogViewport
	rows     render.RowOptions
	entries  []chat.Entry
}

// NewLogView 创建日志视图，rows.Width 会被视口宽度覆盖。
func NewLogView(width, height int, rows render.RowOptions) *LogView {
	return &LogView{
		viewport: render.NewLogViewport(width, height),
		rows:     rows,
	}
}

// Render 用 rec 重新派生并布局日志，返回显示内容是否变化。
func (v *LogView) Render(rec record.Record) bool {
	v.entries = chat.DeriveLog(rec)
	return v.layout(false)
}

// Resize 调整视口尺寸；尺寸变化时按新宽度重排并滚动到底部。
func (v *LogView) Resize(width, height int) {
	if v.viewport.Resize(width, height) {
		v.layout(true)
	}
}

func (v *LogView) layout(force bool) bool {
	opts := v.rows
	opts.Width = v.viewport.Width
	changed := v.viewport.SetLines(render.RenderRows(v.entries, opts))
	if changed || force {
		v.viewport.GotoBottom()
	}
	return changed
}

// Entries 返回最近一次派生的日志。
func (v *LogView) Entries() []chat.Entry {
	return v.entries
}

// Lines 返回视口中的显示行。
func (v *LogView) Lines() []string {
	return v.viewport.Lines()
}

// AtBottom reports whether the newest row is in view.
func (v *LogView) AtBottom() bool {
	return v.viewport.AtBottom()
}

func (v *LogView) PageUp()   { v.viewport.ScrollPageUp() }
func (v *LogView) PageDown() { v.viewport.ScrollPageDown() }

// Update forwards mouse wheel and similar messages to the viewport.
func (v *LogView) Update(msg tea.Msg) tea.Cmd {
	return v.viewport.HandleUpdate(msg)
}

func (v *LogView) View() string {
	return v.viewport.View()
}

func (v *LogView) Width() int  { return v.viewport.Width }
func (v *LogView) Height() int { return v.viewport.Height }
