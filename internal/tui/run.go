package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Result 返回 TUI 退出时的状态。
type Result struct {
	// Draft 是退出时尚未提交的输入，卡片本身不保存它。
	Draft string
}

// Run 封装 Bubble Tea 入口，使用备用屏幕运行卡片直到退出。
func Run(opts Options) (Result, error) {
	if opts.Store == nil {
		return Result{}, errors.New("tui: store is required")
	}
	program := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	m, err := program.Run()
	if err != nil {
		return Result{}, err
	}
	card, ok := m.(*Model)
	if !ok {
		return Result{}, errors.New("unexpected tui model")
	}
	card.close()
	return Result{Draft: card.Draft()}, nil
}
