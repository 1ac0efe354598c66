package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chatroom/internal/chat"
	"chatroom/internal/logger"
	"chatroom/internal/record"
)

// DefaultSyncTimeout bounds one Sync issued after a commit.
const DefaultSyncTimeout = 10 * time.Second

// Identity 返回当前发送者标识。
type Identity func() string

// PlaceholderIdentity 是未接入真实身份时使用的固定发送者。
func PlaceholderIdentity() string {
	return chat.PlaceholderSender
}

// SyncResultMsg 是提交后 Sync 的结果，只用于记录日志。
type SyncResultMsg struct {
	Key string
	Err error
}

// InputController 持有输入草稿，并在提交时把消息写入共享记录。
type InputController struct {
	store    record.Writer
	keys     *chat.Keyer
	identity Identity
	log      *logger.LogEntry
	draft    string
	timeout  time.Duration
}

// NewInputController 创建输入控制器。identity 为 nil 时使用占位身份。
func NewInputController(store record.Writer, keys *chat.Keyer, identity Identity, log *logger.LogEntry) *InputController {
	if identity == nil {
		identity = PlaceholderIdentity
	}
	if log == nil {
		log = logger.Named("card")
	}
	return &InputController{
		store:    store,
		keys:     keys,
		identity: identity,
		log:      log,
		timeout:  DefaultSyncTimeout,
	}
}

// Draft 返回当前草稿。
func (c *InputController) Draft() string {
	return c.draft
}

// OnTextChange 用 text 替换草稿。
func (c *InputController) OnTextChange(text string) {
	c.draft = text
}

// OnCommitTrigger 提交 current。空白内容直接忽略，不写入也不同步，草稿保持不变。
// 否则依次清空草稿、编码消息、按提交时刻生成键并写入记录，最后返回执行 Sync 的命令。
func (c *InputController) OnCommitTrigger(current string) tea.Cmd {
	if strings.TrimSpace(current) == "" {
		return nil
	}
	c.draft = ""

	msg := chat.Message{Sender: c.identity(), Body: current}
	encoded, err := chat.Encode(msg)
	if err != nil {
		c.log.WithError(err).Warn("drop unencodable message")
		return nil
	}
	key, _ := c.keys.Next()
	c.store.Set(key, encoded)
	c.log.WithField("key", key).Debug("message staged")

	store, timeout, log := c.store, c.timeout, c.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := store.Sync(ctx)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("sync failed")
		}
		return SyncResultMsg{Key: key, Err: err}
	}
}
