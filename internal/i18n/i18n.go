package i18n

import (
	"strings"
	"time"
)

// Language 描述卡片展示使用的语言，决定时间格式与界面文案。
type Language string

const (
	LanguageChinese Language = "zh"
	LanguageEnglish Language = "en"

	// DefaultLanguage 未配置时的默认语言。
	DefaultLanguage = LanguageEnglish
)

// Normalize 将用户输入的语言值转换为统一的语言代码。
// 空字符串回退到默认语言，未知值原样保留。
func Normalize(value string) Language {
	lang := strings.ToLower(strings.TrimSpace(value))
	switch lang {
	case "":
		return DefaultLanguage
	case "zh", "zh-cn", "zh_cn", "zh-hans", "cn", "chinese", "中文":
		return LanguageChinese
	case "en", "en-us", "en_us", "en-gb", "english":
		return LanguageEnglish
	default:
		return Language(lang)
	}
}

// TimeLayout 返回本地化的日期时间格式。未知语言使用英文格式。
func (l Language) TimeLayout() string {
	switch Normalize(string(l)) {
	case LanguageChinese:
		return "2006/1/2 15:04:05"
	default:
		return "1/2/2006, 3:04:05 PM"
	}
}

// FormatTime 将 t 转换到 loc 后按语言格式化；loc 为 nil 时使用本地时区。
func (l Language) FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(l.TimeLayout())
}

// Strings 是卡片界面文案。
type Strings struct {
	InputLabel string
	Unreadable string
	Empty      string
	Copied     string
	CopyFailed string
	QuitHint   string
}

// Text 返回语言对应的界面文案。
func (l Language) Text() Strings {
	switch Normalize(string(l)) {
	case LanguageChinese:
		return Strings{
			InputLabel: "发送消息",
			Unreadable: "（无法读取的消息）",
			Empty:      "暂无消息",
			Copied:     "已复制最新消息",
			CopyFailed: "复制失败",
			QuitHint:   "Enter 发送 • Alt+Enter 换行 • PgUp/PgDn 滚动 • Ctrl+Y 复制 • Esc 退出",
		}
	default:
		return Strings{
			InputLabel: "Send a message",
			Unreadable: "(unreadable message)",
			Empty:      "No messages yet",
			Copied:     "copied newest message",
			CopyFailed: "copy failed",
			QuitHint:   "Enter send • Alt+Enter newline • PgUp/PgDn scroll • Ctrl+Y copy • Esc quit",
		}
	}
}
