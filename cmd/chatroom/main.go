package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chatroom/internal/i18n"
	"chatroom/internal/logger"
	"chatroom/internal/tui"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "relay":
			relayMain(root, rest[1:])
			return
		case "dump":
			dumpMain(root, rest[1:])
			return
		case "say":
			sayMain(root, rest[1:])
			return
		case "config":
			configMain(root, rest[1:])
			return
		}
	}

	runCard(root, rest)
}

func runCard(root rootArgs, args []string) {
	fs, cli := newCardFlagSet("chatroom")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}
	cfg, err := cli.resolve(root)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open record: %v", err)
	}
	defer store.Close()

	cardLog := logger.Named("card")
	if entry, closer, _, err := logger.SetupComponentFile("card", logger.DefaultCardLogPath); err != nil {
		log.Warnf("failed to initialize card log (%s): %v", logger.DefaultCardLogPath, err)
	} else {
		cardLog = entry
		if closer != nil {
			defer closer.Close()
		}
	}

	res, err := tui.Run(tui.Options{
		Name:      cfg.Name,
		Title:     cfg.Title,
		Store:     store,
		Identity:  identityFor(cfg.User),
		Language:  i18n.Normalize(cfg.Locale),
		Location:  loc,
		KeySuffix: cfg.KeySuffix,
		Log:       cardLog,
	})
	if err != nil {
		log.Fatalf("tui error: %v", err)
	}
	if res.Draft != "" {
		log.WithField("chars", len([]rune(res.Draft))).Info("unsent draft discarded")
	}
}
