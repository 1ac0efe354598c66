package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"chatroom/internal/chat"
	"chatroom/internal/config"
	"chatroom/internal/i18n"
	"chatroom/internal/logger"
	"chatroom/internal/record"
	"chatroom/internal/relay"
	"chatroom/internal/tui"
)

func relayMain(root rootArgs, args []string) {
	fs, cli := newCardFlagSet("relay")
	var listen string
	fs.StringVar(&listen, "listen", "", "Address to listen on (default from config relay.listen)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse relay args: %v", err)
	}
	cfg, err := cli.resolve(root)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if strings.TrimSpace(listen) != "" {
		cfg.Relay.Listen = strings.TrimSpace(listen)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runRelay(ctx, cfg); err != nil {
		log.Fatalf("relay failed: %v", err)
	}
}

// runRelay 在 cfg.Relay.Listen 上托管一份记录，直到 ctx 结束。
func runRelay(ctx context.Context, cfg config.Config) error {
	if cfg.Store.Backend == config.BackendRelay {
		return errors.New("relay server needs a memory or bolt backing store")
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	relayLog := logger.Named("relay")
	srv := relay.NewServer(store, relayLog)
	go srv.Run(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Relay.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	relayLog.WithField("listen", cfg.Relay.Listen).WithField("backend", cfg.Store.Backend).Info("relay listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func dumpMain(root rootArgs, args []string) {
	fs, cli := newCardFlagSet("dump")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse dump args: %v", err)
	}
	cfg, err := cli.resolve(root)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone: %v", err)
	}
	if err := requireSharedBackend(cfg); err != nil {
		log.Fatalf("dump: %v", err)
	}
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("open record: %v", err)
	}
	defer store.Close()
	if err := runDump(store, i18n.Normalize(cfg.Locale), loc, os.Stdout); err != nil {
		log.Fatalf("dump failed: %v", err)
	}
}

// runDump 把派生日志以表格形式写到 out。
func runDump(store record.Reader, lang i18n.Language, loc *time.Location, out io.Writer) error {
	entries := chat.DeriveLog(store.Snapshot())
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Key", "Sender", "Time", "Message"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, entry := range entries {
		when := entry.Stamp
		if entry.HasTime {
			when = lang.FormatTime(entry.Time, loc)
		}
		if !entry.OK() {
			table.Append([]string{entry.Key, "", when, lang.Text().Unreadable})
			continue
		}
		body := strings.ReplaceAll(entry.Message.Body, "\n", " ")
		table.Append([]string{entry.Key, entry.Message.Sender, when, body})
	}
	table.Render()
	readable := 0
	for _, entry := range entries {
		if entry.OK() {
			readable++
		}
	}
	if unreadable := len(entries) - readable; unreadable > 0 {
		_, err := fmt.Fprintf(out, "%d message(s), %d unreadable\n", readable, unreadable)
		return err
	}
	_, err := fmt.Fprintf(out, "%d message(s)\n", readable)
	return err
}

func sayMain(root rootArgs, args []string) {
	fs, cli := newCardFlagSet("say")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse say args: %v", err)
	}
	cfg, err := cli.resolve(root)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if err := requireSharedBackend(cfg); err != nil {
		log.Fatalf("say: %v", err)
	}
	text := strings.Join(fs.Args(), " ")
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("open record: %v", err)
	}
	defer store.Close()

	key, err := runSay(context.Background(), store, cfg, text, nil)
	if err != nil {
		log.Fatalf("say failed: %v", err)
	}
	fmt.Println(key)
}

var (
	errEmptyMessage   = errors.New("message is empty")
	errVolatileRecord = errors.New("memory backend is private to this process; use bolt or relay")
)

// requireSharedBackend 拒绝进程内存储：一次性命令写入或读取的内容会随进程退出丢失。
func requireSharedBackend(cfg config.Config) error {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return errVolatileRecord
	}
	return nil
}

// runSay 通过与卡片相同的输入控制器提交一条消息，并等待记录中出现该键。
func runSay(ctx context.Context, store record.Store, cfg config.Config, text string, now func() time.Time) (string, error) {
	sub, cancel := store.Subscribe()
	defer cancel()

	controller := tui.NewInputController(store, chat.NewKeyer(cfg.Name, now, cfg.KeySuffix), identityFor(cfg.User), logger.Named("cli"))
	controller.OnTextChange(text)
	cmd := controller.OnCommitTrigger(text)
	if cmd == nil {
		return "", errEmptyMessage
	}
	res, ok := cmd().(tui.SyncResultMsg)
	if !ok {
		return "", errors.New("unexpected commit result")
	}
	if res.Err != nil {
		return res.Key, res.Err
	}
	if _, ok := store.Snapshot()[res.Key]; ok {
		return res.Key, nil
	}

	waitCtx, stop := context.WithTimeout(ctx, tui.DefaultSyncTimeout)
	defer stop()
	for {
		select {
		case snap, ok := <-sub:
			if !ok {
				return res.Key, errors.New("record closed before the message was observed")
			}
			if _, found := snap[res.Key]; found {
				return res.Key, nil
			}
		case <-waitCtx.Done():
			return res.Key, fmt.Errorf("wait for %q: %w", res.Key, waitCtx.Err())
		}
	}
}

func configMain(root rootArgs, args []string) {
	if len(args) == 0 {
		log.Fatalf("usage: chatroom config <path|show|save> [flags]")
	}
	action := args[0]
	fs, cli := newCardFlagSet("config " + action)
	if err := fs.Parse(args[1:]); err != nil {
		log.Fatalf("parse config args: %v", err)
	}
	if err := runConfig(root, cli, action, os.Stdout); err != nil {
		log.Fatalf("config %s: %v", action, err)
	}
}

// runConfig 显示或保存合并后的有效配置。
func runConfig(root rootArgs, cli *cardArgs, action string, out io.Writer) error {
	cfg, err := cli.resolve(root)
	if err != nil {
		return err
	}
	switch action {
	case "path":
		_, err = fmt.Fprintln(out, cfg.Source)
		return err
	case "show":
		_, err = fmt.Fprintf(out, "name=%s title=%s user=%s locale=%s store=%s relay=%s\n",
			cfg.Name, cfg.Title, cfg.User, cfg.Locale, cfg.Store.Backend, cfg.Relay.URL)
		return err
	case "save":
		if err := config.Save(cfg.Source, cfg); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "saved %s\n", cfg.Source)
		return err
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}
