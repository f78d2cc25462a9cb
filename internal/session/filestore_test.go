package session

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"voxnav/internal/catalog"
)

func TestFileStoreLoadMissingSynthesizesDefault(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}

	s, err := fs.Load(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("missing session must not error: %v", err)
	}
	if s.Level != LevelMenu || len(s.MenuPath) != 0 {
		t.Fatalf("expected a fresh MENU session, got %s %v", s.Level, s.MenuPath)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}

	s := New("amzn1.ask.account.XYZ")
	s.Level = LevelSubmenu
	s.MenuPath = []int{2}
	s.LastListing = catalog.WithReserved([]catalog.Entry{
		{Number: 1, NodeID: "artigos/1", Label: "Sobre hábitos", Kind: catalog.KindLeafItem},
	})

	if err := fs.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	got, err := fs.Load(context.Background(), "amzn1.ask.account.XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelSubmenu || !reflect.DeepEqual(got.MenuPath, []int{2}) {
		t.Fatalf("state lost: %s %v", got.Level, got.MenuPath)
	}
	if !reflect.DeepEqual(got.LastListing, s.LastListing) {
		t.Fatal("listing snapshot lost")
	}
}

func TestFileStoreTTLExpiry(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{1}
	if err := fs.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	got, err := fs.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelMenu {
		t.Fatalf("expired session must come back fresh, got %s", got.Level)
	}
}

func TestFileStoreCorruptRecordStartsFresh(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "u1.json"), []byte("{torn"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := fs.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("corrupt record must not error: %v", err)
	}
	if got.Level != LevelMenu {
		t.Fatalf("expected a fresh session, got %s", got.Level)
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := fs.Save(context.Background(), New("u1")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".session-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(entries))
	}
}

func TestFileStoreReset(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{1}
	if err := fs.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	if err := fs.Reset(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	// Resetting a missing session is not an error.
	if err := fs.Reset(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}

	got, err := fs.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelMenu {
		t.Fatalf("expected a fresh session after reset, got %s", got.Level)
	}
}

func TestSanitizeKeepsPlatformIDsSafe(t *testing.T) {
	got := sanitize("amzn1.ask.account/ABC:DEF")
	if strings.ContainsAny(got, "/:") {
		t.Fatalf("unsafe characters survived: %q", got)
	}
}

func TestCachedStoreWritesThrough(t *testing.T) {
	inner := NewMemStore(DefaultTTL)
	cs := NewCachedStore(inner, 8, time.Minute)

	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{3}
	if err := cs.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	// The durable backend got the write, not just the cache.
	durable, err := inner.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if durable.Level != LevelSubmenu {
		t.Fatalf("write did not reach the backend: %s", durable.Level)
	}

	cached, err := cs.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cached.MenuPath, []int{3}) {
		t.Fatalf("cached copy wrong: %v", cached.MenuPath)
	}
}

func TestCachedStoreResetEvicts(t *testing.T) {
	inner := NewMemStore(DefaultTTL)
	cs := NewCachedStore(inner, 8, time.Minute)

	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{1}
	if err := cs.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if err := cs.Reset(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}

	got, err := cs.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelMenu {
		t.Fatalf("stale cached session survived reset: %s", got.Level)
	}
}
