package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_PutGet(t *testing.T) {
	c, err := New(true, t.TempDir(), 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	key := BuildKey("src/a.ts", "@@ -1 +1 @@", "Base.Rule1")
	value := []byte(`[{"file":"src/a.ts","line":1,"ruleId":"Base.Rule1"}]`)

	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss before put")
	}
	if err := c.Put(key, value); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cache hit after put")
	}
	if string(got) != string(value) {
		t.Errorf("Get = %s, want %s", got, value)
	}
}

func TestCache_PutRejectsInvalidJSON(t *testing.T) {
	c, err := New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := c.Put("k", []byte("not json")); err == nil {
		t.Error("Put with invalid JSON should fail")
	}
}

func TestCache_JSONHelpers(t *testing.T) {
	c, err := New(true, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	type finding struct {
		File string `json:"file"`
	}
	if err := c.PutJSON("k", []finding{{File: "a.go"}}); err != nil {
		t.Fatalf("PutJSON error: %v", err)
	}
	var got []finding
	if !c.GetJSON("k", &got) {
		t.Fatal("GetJSON miss")
	}
	if len(got) != 1 || got[0].File != "a.go" {
		t.Errorf("GetJSON = %+v", got)
	}
	if c.GetJSON("other", &got) {
		t.Error("GetJSON should miss for unknown key")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c, err := New(true, t.TempDir(), 60)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.Put("expire-test", []byte(`"data"`)); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	if _, ok := c.Get("expire-test"); !ok {
		t.Fatal("Expected hit within TTL")
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1", stats.Expired)
	}
	if _, ok := c.Get("expire-test"); ok {
		t.Error("Expected miss after TTL")
	}
	if _, err := os.Stat(c.entryPath("expire-test")); !os.IsNotExist(err) {
		t.Error("Expired entry should be removed on read")
	}
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(false, "", 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := c.Put("k", []byte(`1`)); err != nil {
		t.Errorf("Put on disabled cache = %v, want nil", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Disabled cache should always miss")
	}
	if c.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	n, err := c.Clear()
	if err != nil || n != 0 {
		t.Errorf("Clear = (%d, %v), want (0, nil)", n, err)
	}
}

func TestCache_ClearAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, []byte(`{}`)); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.TotalBytes == 0 {
		t.Error("TotalBytes should be > 0")
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("Clear should leave non-entry files alone")
	}
}

func TestHashKey(t *testing.T) {
	a := HashKey("hello")
	if len(a) != 64 {
		t.Errorf("HashKey length = %d, want 64", len(a))
	}
	if a != HashKey("hello") {
		t.Error("HashKey not deterministic")
	}
	if BuildKey("ab", "c") == BuildKey("a", "bc") {
		t.Error("BuildKey must keep part boundaries")
	}
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "specreview") {
		t.Errorf("DefaultDir = %q", dir)
	}
}
