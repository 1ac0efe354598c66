package main

import (
	"flag"
	"strings"
	"time"

	"chatroom/internal/config"
	"chatroom/internal/tui"
)

// cardArgs captures flags shared by every entrypoint that binds to the record.
type cardArgs struct {
	cfgPath         string
	name            string
	title           string
	user            string
	locale          string
	backend         string
	path            string
	relayURL        string
	configOverrides stringSlice
}

func newCardFlagSet(name string) (*flag.FlagSet, *cardArgs) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	args := &cardArgs{}

	fs.StringVar(&args.cfgPath, "config", "", "Path to config file (default ~/.chatroom/config.toml)")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&args.name, "name", "", "Card name, used as the record key prefix")
	fs.StringVar(&args.title, "title", "", "Card title")
	fs.StringVar(&args.user, "user", "", "Sender identity written into new messages")
	fs.StringVar(&args.locale, "locale", "", "Display language (en|zh)")
	fs.StringVar(&args.backend, "store", "", "Record host (memory|bolt|relay)")
	fs.StringVar(&args.path, "path", "", "Database path for the bolt record host")
	fs.StringVar(&args.relayURL, "relay", "", "Relay websocket URL for the relay record host")

	return fs, args
}

// resolve 按 配置文件 -> 环境变量 -> -c 覆盖 -> 显式 flag 的顺序合并配置。
func (a *cardArgs) resolve(root rootArgs) (config.Config, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return cfg, err
	}
	cfg = config.ApplyKVOverrides(cfg, prependOverrides(root.overrides, []string(a.configOverrides)))
	a.applyTo(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *cardArgs) applyTo(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Name, a.name)
	set(&cfg.Title, a.title)
	set(&cfg.User, a.user)
	set(&cfg.Locale, a.locale)
	set(&cfg.Store.Backend, a.backend)
	set(&cfg.Store.Path, a.path)
	set(&cfg.Relay.URL, a.relayURL)
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// identityFor 返回固定发送者；未配置时退回占位身份。
func identityFor(user string) tui.Identity {
	user = strings.TrimSpace(user)
	if user == "" {
		return tui.PlaceholderIdentity
	}
	return func() string { return user }
}
