package tui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chatroom/internal/chat"
	"chatroom/internal/i18n"
	"chatroom/internal/logger"
	"chatroom/internal/record"
	"chatroom/internal/tui/render"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
	minLogHeight  = 3
	defaultName   = "room"
)

// Options 描述卡片所需的全部依赖，store 必须由调用方注入。
type Options struct {
	Name      string
	Title     string
	Store     record.Store
	Identity  Identity
	Clock     func() time.Time
	Language  i18n.Language
	Location  *time.Location
	KeySuffix string
	// Clipboard 为 nil 时使用系统剪贴板。
	Clipboard func(string) error
	Log       *logger.LogEntry
}

type snapshotMsg struct {
	Record record.Record
}

type subscriptionClosedMsg struct{}

// Model 是聊天卡片：标题、消息日志和输入框。
type Model struct {
	title       string
	store       record.Store
	logView     *LogView
	input       *InputController
	textarea    textarea.Model
	sub         <-chan record.Record
	unsubscribe func()
	clipboard   func(string) error
	text        i18n.Strings
	log         *logger.LogEntry
	status      string
	width       int
	height      int
}

// New 创建卡片并订阅 store；首个快照在 Init 中渲染。
func New(opts Options) *Model {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = defaultName
	}
	log := opts.Log
	if log == nil {
		log = logger.Named("card")
	}
	lang := i18n.Normalize(string(opts.Language))
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ti := textarea.New()
	ti.Placeholder = lang.Text().InputLabel + "…"
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.ShowLineNumbers = false
	ti.KeyMap.InsertNewline.SetEnabled(false)
	ti.SetHeight(inputHeight)
	ti.Focus()

	m := &Model{
		title:     opts.Title,
		store:     opts.Store,
		textarea:  ti,
		clipboard: copyFn,
		text:      lang.Text(),
		log:       log,
		logView: NewLogView(defaultWidth, defaultHeight, render.RowOptions{
			Language: lang,
			Location: opts.Location,
		}),
		input: NewInputController(opts.Store, chat.NewKeyer(name, opts.Clock, opts.KeySuffix), opts.Identity, log),
	}
	m.sub, m.unsubscribe = opts.Store.Subscribe()
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m *Model) Init() tea.Cmd {
	m.logView.Render(m.store.Snapshot())
	return tea.Batch(textarea.Blink, m.listen())
}

// listen 等待下一次记录变更通知。
func (m *Model) listen() tea.Cmd {
	ch := m.sub
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		rec, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg{Record: rec}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case snapshotMsg:
		m.logView.Render(msg.Record)
		return m, m.listen()
	case subscriptionClosedMsg:
		m.log.Debug("record subscription closed")
		m.sub = nil
		return m, nil
	case SyncResultMsg:
		return m, nil
	case tea.MouseMsg:
		return m, m.logView.Update(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.close()
		return m, tea.Quit
	case tea.KeyEnter:
		if msg.Alt {
			m.textarea.InsertString("\n")
			m.input.OnTextChange(m.textarea.Value())
			return m, nil
		}
		cmd := m.input.OnCommitTrigger(m.textarea.Value())
		if draft := m.input.Draft(); draft != m.textarea.Value() {
			m.textarea.SetValue(draft)
		}
		m.status = ""
		return m, cmd
	case tea.KeyPgUp:
		m.logView.PageUp()
		return m, nil
	case tea.KeyPgDown:
		m.logView.PageDown()
		return m, nil
	case tea.KeyCtrlY:
		m.copyNewest()
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.input.OnTextChange(m.textarea.Value())
	return m, cmd
}

func (m *Model) copyNewest() {
	entry, ok := chat.Last(m.logView.Entries())
	if !ok {
		m.status = m.text.Empty
		return
	}
	if err := m.clipboard(entry.Message.Body); err != nil {
		m.log.WithError(err).Warn("clipboard write failed")
		m.status = m.text.CopyFailed
		return
	}
	m.status = m.text.Copied
}

func (m *Model) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	inner := max(width-4, 10) // border + padding
	titleHeight := 1
	inputPane := inputHeight + 3 // label + border
	footer := 2                  // status + hints
	logHeight := height - titleHeight - inputPane - footer - 2
	if logHeight < minLogHeight {
		logHeight = minLogHeight
	}
	m.textarea.SetWidth(inner)
	m.logView.Resize(inner, logHeight)
}

func (m *Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1).Render(m.title)
	body := m.logView.View()
	if len(m.logView.Entries()) == 0 {
		body = lipgloss.NewStyle().Faint(true).Render(m.text.Empty)
	}
	logPane := renderPane("", body, m.width, m.logView.Height())
	inputPane := renderPane(m.text.InputLabel, m.textarea.View(), m.width, m.textarea.Height())
	return lipgloss.JoinVertical(lipgloss.Left, title, logPane, inputPane, renderStatus(m.status, m.width), renderHints(m.text.QuitHint, m.width))
}

// Draft 返回输入控制器中的草稿。
func (m *Model) Draft() string {
	return m.input.Draft()
}

func renderPane(title string, body string, width int, height int) string {
	titleText := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Render(title)
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5E6472")).
		Padding(0, 1)
	if width > 0 {
		style = style.Width(max(width-2, 12))
	}
	if height > 0 {
		total := height
		if strings.TrimSpace(title) != "" {
			total++
		}
		style = style.Height(total)
	}
	content := body
	if strings.TrimSpace(title) != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, titleText, body)
	}
	return style.Render(content)
}

func renderStatus(status string, width int) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7A85")).
		Padding(0, 1).
		Width(max(20, width)).
		Render(status)
}

func renderHints(hint string, width int) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7A85")).
		Padding(0, 1).
		Width(max(20, width)).
		Render(hint)
}
