package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatroom/internal/record"

	"github.com/gorilla/websocket"
)

func startRelay(t *testing.T, seed record.Record) (*Server, *record.Memory, string) {
	t.Helper()
	store := record.NewMemory(seed, record.Options{})
	srv := NewServer(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
		_ = store.Close()
	})
	return srv, store, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, sub <-chan record.Record, pred func(record.Record) bool) record.Record {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub:
			if !ok {
				t.Fatalf("subscription closed")
			}
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timeout waiting for snapshot")
		}
	}
}

func TestDialReceivesInitialSnapshot(t *testing.T) {
	_, _, url := startRelay(t, record.Record{"room data 2024-01-01T00:00:00.000Z": `{"u":"a","m":"hi"}`})
	c := dial(t, url)
	if got := c.Snapshot()["room data 2024-01-01T00:00:00.000Z"]; got != `{"u":"a","m":"hi"}` {
		t.Fatalf("initial snapshot = %v", c.Snapshot())
	}
}

func TestPatchReachesEveryClient(t *testing.T) {
	_, store, url := startRelay(t, nil)
	writer := dial(t, url)
	reader := dial(t, url)
	writerSub, cancelW := writer.Subscribe()
	defer cancelW()
	readerSub, cancelR := reader.Subscribe()
	defer cancelR()

	writer.Set("room data 2024-01-01T00:00:05.000Z", `{"u":"w","m":"ping"}`)
	if got := writer.Snapshot(); len(got) != 0 {
		t.Fatalf("local mirror must wait for the server: %v", got)
	}
	if err := writer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	has := func(r record.Record) bool { return r["room data 2024-01-01T00:00:05.000Z"] != "" }
	waitFor(t, readerSub, has)
	waitFor(t, writerSub, has)
	if !has(store.Snapshot()) {
		t.Fatalf("server store missing patched key")
	}
}

func TestSnapshotLargerThanFrameLimit(t *testing.T) {
	seed := record.Record{}
	body := strings.Repeat("x", 1024)
	for i := 0; i < 1100; i++ {
		seed[fmt.Sprintf("room data 2024-01-01T00:00:%02d.%03dZ~%04d", i/1000, i%1000, i)] = `{"u":"a","m":"` + body + `"}`
	}
	_, store, url := startRelay(t, seed)
	c := dial(t, url)
	if got := len(c.Snapshot()); got != len(seed) {
		t.Fatalf("mirror keys = %d, want %d", got, len(seed))
	}

	sub, cancel := c.Subscribe()
	defer cancel()
	c.Set("room data 2024-01-02T00:00:00.000Z", `{"u":"b","m":"after"}`)
	if err := c.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	waitFor(t, sub, func(r record.Record) bool { return len(r) == len(seed)+1 })
	if got := len(store.Snapshot()); got != len(seed)+1 {
		t.Fatalf("server keys = %d, want %d", got, len(seed)+1)
	}
}

func TestDialFailsWhenClosedBeforeSnapshot(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseMessageTooBig, "too big"))
		conn.Close()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err == nil {
		_ = c.Close()
		t.Fatalf("Dial should fail when the relay closes before the first snapshot")
	}
}

func TestServerStoreChangesArePushed(t *testing.T) {
	_, store, url := startRelay(t, nil)
	c := dial(t, url)
	sub, cancel := c.Subscribe()
	defer cancel()

	if err := store.ApplyField(context.Background(), "k", "from-server"); err != nil {
		t.Fatalf("ApplyField: %v", err)
	}
	waitFor(t, sub, func(r record.Record) bool { return r["k"] == "from-server" })
}

func TestSyncAfterCloseFails(t *testing.T) {
	_, _, url := startRelay(t, nil)
	c := dial(t, url)
	_ = c.Close()
	c.Set("k", "v")
	if err := c.Sync(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Sync after close err = %v, want ErrNotConnected", err)
	}
}

func TestClientCount(t *testing.T) {
	srv, _, url := startRelay(t, nil)
	a := dial(t, url)
	dial(t, url)
	if n := srv.ClientCount(); n != 2 {
		t.Fatalf("ClientCount = %d, want 2", n)
	}
	_ = a.Close()
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d after close, want 1", srv.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, url := startRelay(t, record.Record{"room data 2024-01-01T00:00:00.000Z": `{"u":"a","m":"hi"}`})
	dial(t, url)

	base := "http" + strings.TrimSuffix(strings.TrimPrefix(url, "ws"), "/ws")
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Clients int `json:"clients"`
		Keys    int `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Clients != srv.ClientCount() || body.Keys != 1 {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"patch","origin":"x"}`))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Type != FramePatch || f.Fields == nil {
		t.Fatalf("unexpected frame %+v", f)
	}
	if _, err := DecodeFrame([]byte(`{"type":"hello"}`)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := DecodeFrame([]byte(`nope`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}
