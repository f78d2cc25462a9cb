package session

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), ttl)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteLoadMissingSynthesizesDefault(t *testing.T) {
	st := openTestSQLite(t, DefaultTTL)

	s, err := st.Load(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("missing session must not error: %v", err)
	}
	if s.Level != LevelMenu {
		t.Fatalf("expected a fresh MENU session, got %s", s.Level)
	}
}

func TestSQLiteRoundTripAndOverwrite(t *testing.T) {
	st := openTestSQLite(t, DefaultTTL)

	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{2}
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	// Second save upserts, last write wins.
	s.Level = LevelItem
	s.MenuPath = []int{2, 1}
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelItem || !reflect.DeepEqual(got.MenuPath, []int{2, 1}) {
		t.Fatalf("state lost: %s %v", got.Level, got.MenuPath)
	}
}

func TestSQLiteTTLExpiry(t *testing.T) {
	st := openTestSQLite(t, 10*time.Millisecond)

	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{1}
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	got, err := st.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelMenu {
		t.Fatalf("expired session must come back fresh, got %s", got.Level)
	}
}

func TestSQLiteReset(t *testing.T) {
	st := openTestSQLite(t, DefaultTTL)

	s := New("u1")
	s.Level = LevelSubmenu
	s.MenuPath = []int{1}
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if err := st.Reset(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != LevelMenu {
		t.Fatalf("expected a fresh session after reset, got %s", got.Level)
	}
}
