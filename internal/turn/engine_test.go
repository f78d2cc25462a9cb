package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"voxnav/internal/catalog"
	"voxnav/internal/dialog"
	"voxnav/internal/dispatch"
	"voxnav/internal/session"
	"voxnav/pkg/platform"
)

const testMenus = `menus:
  - id: livros
    label: Livros
    kind: category
    playable: true
  - id: artigos
    label: Artigos
    kind: category
    editable: true
`

type fakeLists struct {
	data map[string][]dispatch.Item
	fail error
}

func (f *fakeLists) GetListing(_ context.Context, id string) ([]dispatch.Item, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]dispatch.Item(nil), f.data[id]...), nil
}

func (f *fakeLists) GetItem(_ context.Context, id string, n int) (dispatch.Item, error) {
	if f.fail != nil {
		return dispatch.Item{}, f.fail
	}
	items := f.data[id]
	if n < 1 || n > len(items) {
		return dispatch.Item{}, fmt.Errorf("no item %d", n)
	}
	return items[n-1], nil
}

func (f *fakeLists) CommitEdit(_ context.Context, id string, n int, field, value string) error {
	if f.fail != nil {
		return f.fail
	}
	f.data[id][n-1].Body = value
	return nil
}

func (f *fakeLists) MoveItem(_ context.Context, id string, n int, dest string) error {
	return f.fail
}

func (f *fakeLists) ListEntries(id string) ([]catalog.Entry, error) {
	items, err := f.GetListing(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return dispatch.Entries(id, items), nil
}

type nopPlayer struct{}

func (nopPlayer) Play(context.Context, string) error { return nil }
func (nopPlayer) Stop(context.Context) error         { return nil }

func newTestEngine(t *testing.T) (*Engine, *fakeLists, session.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "menus.yaml")
	if err := os.WriteFile(path, []byte(testMenus), 0o644); err != nil {
		t.Fatal(err)
	}

	lists := &fakeLists{data: map[string][]dispatch.Item{
		"artigos": {{Label: "Sobre hábitos", Body: "Rascunho.", Editable: true}},
	}}
	cat, err := catalog.Load(path, lists)
	if err != nil {
		t.Fatal(err)
	}

	store := session.NewMemStore(session.DefaultTTL)
	machine := dialog.NewMachine(cat, dispatch.New(lists, nopPlayer{}, 0))
	return NewEngine(store, cat, machine), lists, store
}

func handle(t *testing.T, e *Engine, userID, utterance string) platform.TurnResponse {
	t.Helper()
	resp, err := e.Handle(context.Background(), platform.TurnRequest{UserID: userID, Utterance: utterance})
	if err != nil {
		t.Fatalf("handle %q: %v", utterance, err)
	}
	return resp
}

func loadSession(t *testing.T, store session.Store, userID string) *session.Session {
	t.Helper()
	s, err := store.Load(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMissingUserIDFailsTheTurn(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Handle(context.Background(), platform.TurnRequest{Utterance: "1"})
	if !errors.Is(err, platform.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

func TestFirstContactSpeaksMainMenu(t *testing.T) {
	e, _, store := newTestEngine(t)

	resp := handle(t, e, "alexa-1", "")

	if !strings.Contains(resp.SpokenText, "1. Livros") ||
		!strings.Contains(resp.SpokenText, catalog.ReservedBackLabel) {
		t.Fatalf("main menu not spoken: %q", resp.SpokenText)
	}
	if resp.ShouldEndSession {
		t.Fatal("the mic must stay open")
	}

	s := loadSession(t, store, "alexa-1")
	if s.Level != session.LevelMenu || len(s.LastListing) != 4 {
		t.Fatalf("session not initialized: level=%s rows=%d", s.Level, len(s.LastListing))
	}
}

func TestNumberTwoEntersSecondCategory(t *testing.T) {
	e, _, store := newTestEngine(t)
	handle(t, e, "alexa-1", "")

	resp := handle(t, e, "alexa-1", "2")

	s := loadSession(t, store, "alexa-1")
	if s.Level != session.LevelSubmenu || !reflect.DeepEqual(s.MenuPath, []int{2}) {
		t.Fatalf("expected SUBMENU [2], got %s %v", s.Level, s.MenuPath)
	}
	if !strings.Contains(resp.SpokenText, "Sobre hábitos") {
		t.Errorf("children of Artigos not spoken: %q", resp.SpokenText)
	}
}

func TestEditDictationScenario(t *testing.T) {
	e, lists, store := newTestEngine(t)
	handle(t, e, "alexa-1", "")
	handle(t, e, "alexa-1", "2")
	handle(t, e, "alexa-1", "1")
	handle(t, e, "alexa-1", "editar")

	if s := loadSession(t, store, "alexa-1"); s.Level != session.LevelEditField || s.PendingField == "" {
		t.Fatalf("not dictating: level=%s field=%q", s.Level, s.PendingField)
	}

	resp := handle(t, e, "alexa-1", "trocar para amanhã às 10h confirmar")

	if s := loadSession(t, store, "alexa-1"); s.Level != session.LevelItem {
		t.Fatalf("commit must return to ITEM, got %s", s.Level)
	}
	if got := lists.data["artigos"][0].Body; got != "trocar para amanhã às 10h" {
		t.Fatalf("edit not committed: %q", got)
	}
	if !strings.Contains(resp.SpokenText, "Alterado") {
		t.Errorf("no verbal confirmation: %q", resp.SpokenText)
	}
}

func TestCollaboratorFailureRollsBack(t *testing.T) {
	e, lists, store := newTestEngine(t)
	handle(t, e, "alexa-1", "")
	before := loadSession(t, store, "alexa-1")

	lists.fail = context.DeadlineExceeded
	resp := handle(t, e, "alexa-1", "2")

	after := loadSession(t, store, "alexa-1")
	if after.Level != before.Level || !reflect.DeepEqual(after.MenuPath, before.MenuPath) {
		t.Fatalf("session drifted: %s %v", after.Level, after.MenuPath)
	}
	if !reflect.DeepEqual(after.LastListing, before.LastListing) {
		t.Fatal("listing drifted across the failed turn")
	}
	if !strings.Contains(resp.SpokenText, "tentar de novo") {
		t.Errorf("no retry apology: %q", resp.SpokenText)
	}
}

func TestSessionAttributesRoundTrip(t *testing.T) {
	e, _, _ := newTestEngine(t)
	resp := handle(t, e, "alexa-1", "")

	var s session.Session
	if err := json.Unmarshal(resp.SessionAttributes, &s); err != nil {
		t.Fatalf("attributes not a serialized session: %v", err)
	}
	if s.UserID != "alexa-1" || s.Level != session.LevelMenu {
		t.Fatalf("unexpected attributes: %+v", s)
	}
}

func TestResetDropsTheSession(t *testing.T) {
	e, _, store := newTestEngine(t)
	handle(t, e, "alexa-1", "")
	handle(t, e, "alexa-1", "2")

	if err := e.Reset(context.Background(), "alexa-1"); err != nil {
		t.Fatal(err)
	}

	s := loadSession(t, store, "alexa-1")
	if s.Level != session.LevelMenu || len(s.LastListing) != 0 {
		t.Fatalf("reset left state behind: %s rows=%d", s.Level, len(s.LastListing))
	}
}
