package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatroom/internal/chat"
	"chatroom/internal/config"
	"chatroom/internal/i18n"
	"chatroom/internal/record"
)

func boltConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Name = "room"
	cfg.Store.Backend = config.BackendBolt
	cfg.Store.Path = filepath.Join(t.TempDir(), "record.db")
	return cfg
}

func TestSayThenDumpThroughBolt(t *testing.T) {
	cfg := boltConfig(t)
	cfg.User = "carol"
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key, err := runSay(context.Background(), store, cfg, "hello from cli", func() time.Time { return at })
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if key != "room data 2024-01-01T00:00:00.000Z" {
		t.Fatalf("unexpected key %q", key)
	}
	store.Close()

	reopened, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	var out bytes.Buffer
	if err := runDump(reopened, i18n.LanguageEnglish, time.UTC, &out); err != nil {
		t.Fatalf("dump: %v", err)
	}
	got := out.String()
	for _, want := range []string{"carol", "hello from cli", "1/1/2024, 12:00:00 AM", "1 message(s)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("dump output missing %q:\n%s", want, got)
		}
	}
}

func TestSayRejectsBlank(t *testing.T) {
	store := record.NewMemory(nil, record.Options{})
	defer store.Close()
	if _, err := runSay(context.Background(), store, config.Default(), "  ", nil); !errors.Is(err, errEmptyMessage) {
		t.Fatalf("expected errEmptyMessage, got %v", err)
	}
	if len(store.Snapshot()) != 0 {
		t.Fatalf("blank say must not write")
	}
}

func TestDumpShowsPlaceholderForMalformed(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := record.NewMemory(record.Record{
		chat.FormatKey("room", at, ""): "{broken",
	}, record.Options{})
	defer store.Close()

	var out bytes.Buffer
	if err := runDump(store, i18n.LanguageEnglish, time.UTC, &out); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(out.String(), i18n.LanguageEnglish.Text().Unreadable) {
		t.Fatalf("expected placeholder in dump:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "0 message(s), 1 unreadable") {
		t.Fatalf("placeholder rows must not count as messages:\n%s", out.String())
	}
}

func TestDumpEmptyRecord(t *testing.T) {
	store := record.NewMemory(nil, record.Options{})
	defer store.Close()
	var out bytes.Buffer
	if err := runDump(store, i18n.LanguageEnglish, time.UTC, &out); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(out.String(), "0 message(s)") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRequireSharedBackend(t *testing.T) {
	cases := []struct {
		backend string
		wantErr bool
	}{
		{"", true},
		{config.BackendMemory, true},
		{config.BackendBolt, false},
		{config.BackendRelay, false},
	}
	for _, tc := range cases {
		cfg := config.Default()
		cfg.Store.Backend = tc.backend
		err := requireSharedBackend(cfg)
		if tc.wantErr && !errors.Is(err, errVolatileRecord) {
			t.Fatalf("backend %q: expected errVolatileRecord, got %v", tc.backend, err)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("backend %q: unexpected error %v", tc.backend, err)
		}
	}
}

func TestRunRelayRejectsRelayBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendRelay
	if err := runRelay(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for relay-on-relay")
	}
}

func TestRunConfigSaveAndPath(t *testing.T) {
	t.Setenv("CHATROOM_USER", "")
	t.Setenv("CHATROOM_RELAY_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	fs, cli := newCardFlagSet("config save")
	if err := fs.Parse([]string{"-config", path, "-title", "Saved"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	if err := runConfig(rootArgs{}, cli, "save", &out); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if cfg.Title != "Saved" {
		t.Fatalf("title=%q want Saved", cfg.Title)
	}

	out.Reset()
	if err := runConfig(rootArgs{}, cli, "path", &out); err != nil {
		t.Fatalf("path: %v", err)
	}
	if strings.TrimSpace(out.String()) != path {
		t.Fatalf("path output %q want %q", out.String(), path)
	}
	if err := runConfig(rootArgs{}, cli, "frobnicate", &out); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
