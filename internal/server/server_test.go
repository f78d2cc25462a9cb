package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxnav/internal/catalog"
	"voxnav/internal/dialog"
	"voxnav/internal/dispatch"
	"voxnav/internal/session"
	"voxnav/internal/turn"
	"voxnav/pkg/platform"
)

const testMenus = `menus:
  - id: livros
    label: Livros
    kind: category
    playable: true
`

type staticLists struct{}

func (staticLists) GetListing(context.Context, string) ([]dispatch.Item, error) {
	return []dispatch.Item{{Label: "Dom Casmurro", Media: "dom.mp3"}}, nil
}

func (staticLists) GetItem(context.Context, string, int) (dispatch.Item, error) {
	return dispatch.Item{Label: "Dom Casmurro", Media: "dom.mp3"}, nil
}

func (staticLists) CommitEdit(context.Context, string, int, string, string) error { return nil }
func (staticLists) MoveItem(context.Context, string, int, string) error           { return nil }

func (s staticLists) ListEntries(id string) ([]catalog.Entry, error) {
	items, _ := s.GetListing(context.Background(), id)
	return dispatch.Entries(id, items), nil
}

type nopPlayer struct{}

func (nopPlayer) Play(context.Context, string) error { return nil }
func (nopPlayer) Stop(context.Context) error         { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "menus.yaml")
	if err := os.WriteFile(path, []byte(testMenus), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Load(path, staticLists{})
	if err != nil {
		t.Fatal(err)
	}

	machine := dialog.NewMachine(cat, dispatch.New(staticLists{}, nopPlayer{}, 0))
	engine := turn.NewEngine(session.NewMemStore(session.DefaultTTL), cat, machine)

	ts := httptest.NewServer(New(engine).Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestTurnEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/turn", "application/json",
		strings.NewReader(`{"userId":"u1","utterance":""}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out platform.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.SpokenText, "1. Livros") {
		t.Fatalf("main menu not spoken: %q", out.SpokenText)
	}
	if out.ShouldEndSession {
		t.Fatal("the mic must stay open")
	}
	if len(out.SessionAttributes) == 0 {
		t.Fatal("session attributes missing")
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
}

func TestTurnEndpointMissingUser(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/turn", "application/json",
		strings.NewReader(`{"utterance":"um"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestConsoleRequiresUser(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/console")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
