package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
)

func TestEventMarshalRoundTrip(t *testing.T) {
	e := Event{Path: "/tmp/a.json", Valid: false, Duration: 5 * time.Millisecond}
	body, err := e.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := unmarshalEvent(body)
	if err != nil {
		t.Fatalf("unmarshalEvent: %v", err)
	}
	if got.Path != e.Path || got.Valid != e.Valid {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestWatcherRevalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "tree.json")
	if err := os.WriteFile(fixture, []byte(`{"type": "group"}`), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	doc, err := schema.Load([]byte(`{"type": "group", "required": ["data"]}`))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &Watcher{Dir: dir, Endpoint: "tcp://127.0.0.1:0", Doc: doc, Interval: time.Millisecond}
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	if _, ok := w.mtime[fixture]; ok {
		t.Fatalf("mtime should be empty before the first poll")
	}
	w.pollOnce()
	if _, ok := w.mtime[fixture]; !ok {
		t.Fatalf("pollOnce did not record the fixture's mtime")
	}

	w.pollOnce()
	if len(w.mtime) != 1 {
		t.Fatalf("a second poll with no mtime change should not add entries, got %d", len(w.mtime))
	}
}
