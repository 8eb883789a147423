package cache

import (
	"path/filepath"
	"testing"
)

func TestLoadCachesAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "compile.bolt")
	raw := []byte(`{"type": "group", "required": ["data"]}`)

	c, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	doc, err := c.Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Root == nil {
		t.Fatal("expected a root node")
	}

	// A second Load with the same bytes in the same process must be a
	// compiled-document hit, not a recompile: it returns the exact same
	// *schema.Document instance rather than an equal-but-distinct one.
	docAgain, err := c.Load(raw)
	if err != nil {
		t.Fatalf("Load (in-process hit): %v", err)
	}
	if docAgain != doc {
		t.Fatal("expected the second in-process Load to return the cached *schema.Document, not a recompiled one")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	defer c2.Close()
	doc2, err := c2.Load(raw)
	if err != nil {
		t.Fatalf("Load (warm): %v", err)
	}
	if len(doc2.Root.Required) != 1 || doc2.Root.Required[0] != "data" {
		t.Fatalf("warm load produced a different document: %+v", doc2.Root)
	}

	// Within c2, the bbolt-backed bytes are compiled exactly once: the
	// first Load after reopening populates the in-process tier, so a
	// repeat Load against c2 must return that same instance too.
	doc2Again, err := c2.Load(raw)
	if err != nil {
		t.Fatalf("Load (warm, repeat): %v", err)
	}
	if doc2Again != doc2 {
		t.Fatal("expected the repeat Load on the reopened cache to hit the in-process tier, not recompile")
	}
}

func TestLoadRejectsMalformedSchema(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "compile.bolt"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := c.Load([]byte(`{"type": "nonsense"}`)); err == nil {
		t.Fatal("expected a SchemaError for an invalid type")
	}
}
