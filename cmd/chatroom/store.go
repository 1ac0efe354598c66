package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"chatroom/internal/config"
	"chatroom/internal/logger"
	"chatroom/internal/record"
	"chatroom/internal/relay"
)

const relayDialTimeout = 10 * time.Second

type closableStore interface {
	record.Store
	io.Closer
}

// openStore 按配置选择记录宿主。
func openStore(ctx context.Context, cfg config.Config) (closableStore, error) {
	opts := record.Options{Capacity: cfg.Store.Capacity, Log: logger.Named("record")}
	switch cfg.Store.Backend {
	case config.BackendBolt:
		store, err := record.OpenBolt(cfg.Store.Path, cfg.Name, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRelay:
		dialCtx, cancel := context.WithTimeout(ctx, relayDialTimeout)
		defer cancel()
		client, err := relay.Dial(dialCtx, cfg.Relay.URL, logger.Named("relay"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendMemory, "":
		return record.NewMemory(nil, opts), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
