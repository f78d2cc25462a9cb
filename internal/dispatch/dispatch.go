// Package dispatch executes side-effecting actions against collaborators
// and folds their results into something the dialog can speak.
package dispatch

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"voxnav/internal/catalog"
)

// Item is one playable or editable record held by a collaborator.
type Item struct {
	Label    string `json:"label"`
	Body     string `json:"body"`
	Media    string `json:"media,omitempty"`
	Editable bool   `json:"editable"`
}

// ListProvider is the list-backing collaborator: file-backed JSON lists
// here, cloud storage in other deployments. Out of core scope either way.
type ListProvider interface {
	GetListing(ctx context.Context, categoryID string) ([]Item, error)
	GetItem(ctx context.Context, categoryID string, number int) (Item, error)
	CommitEdit(ctx context.Context, categoryID string, number int, field, value string) error
	MoveItem(ctx context.Context, categoryID string, number int, destCategoryID string) error
}

// PlaybackTrigger starts and stops audio playback of a resource.
type PlaybackTrigger interface {
	Play(ctx context.Context, resourceRef string) error
	Stop(ctx context.Context) error
}

type Op string

const (
	OpFetchListing Op = "fetch_listing"
	OpFetchItem    Op = "fetch_item"
	OpCommitEdit   Op = "commit_edit"
	OpMoveItem     Op = "move_item"
	OpPlay         Op = "play"
	OpStop         Op = "stop"
)

// Action names one collaborator call and its arguments.
type Action struct {
	Op       Op
	Category string
	Number   int
	Field    string
	Value    string
	Dest     string
	Resource string
}

// Result is what the state machine folds back into the turn. Delta, when
// present, is the refreshed listing content (without reserved rows) so a
// following REPEAT reflects the mutation without a reload.
type Result struct {
	Success    bool
	SpokenText string
	Item       Item
	Delta      []catalog.Entry
}

// Dispatcher runs each action under its own short deadline. A turn lives
// inside the voice platform's request timeout; a hung collaborator must
// fail fast into the rollback path, not stall the whole turn.
type Dispatcher struct {
	Lists   ListProvider
	Player  PlaybackTrigger
	Timeout time.Duration
}

func New(lists ListProvider, player PlaybackTrigger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Dispatcher{Lists: lists, Player: player, Timeout: timeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, a Action) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	switch a.Op {
	case OpFetchListing:
		items, err := d.Lists.GetListing(ctx, a.Category)
		if err != nil {
			return Result{}, fmt.Errorf("fetch listing %q: %w", a.Category, err)
		}
		return Result{Success: true, Delta: Entries(a.Category, items)}, nil

	case OpFetchItem:
		item, err := d.Lists.GetItem(ctx, a.Category, a.Number)
		if err != nil {
			return Result{}, fmt.Errorf("fetch item %d of %q: %w", a.Number, a.Category, err)
		}
		return Result{Success: true, Item: item}, nil

	case OpCommitEdit:
		if err := d.Lists.CommitEdit(ctx, a.Category, a.Number, a.Field, a.Value); err != nil {
			return Result{}, fmt.Errorf("commit edit on %q item %d: %w", a.Category, a.Number, err)
		}
		return d.refreshed(ctx, a.Category, "Alterado: "+a.Value+".")

	case OpMoveItem:
		if err := d.Lists.MoveItem(ctx, a.Category, a.Number, a.Dest); err != nil {
			return Result{}, fmt.Errorf("move item %d from %q to %q: %w", a.Number, a.Category, a.Dest, err)
		}
		return d.refreshed(ctx, a.Category, "Item redirecionado.")

	case OpPlay:
		if err := d.Player.Play(ctx, a.Resource); err != nil {
			return Result{}, fmt.Errorf("play %q: %w", a.Resource, err)
		}
		return Result{Success: true, SpokenText: "Reproduzindo."}, nil

	case OpStop:
		if err := d.Player.Stop(ctx); err != nil {
			return Result{}, fmt.Errorf("stop playback: %w", err)
		}
		return Result{Success: true, SpokenText: "Reprodução parada."}, nil
	}

	return Result{}, fmt.Errorf("unknown action %q", a.Op)
}

// refreshed re-reads the category after a mutation so the session's
// listing snapshot can be brought up to date in the same turn.
func (d *Dispatcher) refreshed(ctx context.Context, categoryID, spoken string) (Result, error) {
	items, err := d.Lists.GetListing(ctx, categoryID)
	if err != nil {
		// The mutation itself landed; a failed refresh only costs the
		// snapshot. The next full listing fetch heals it.
		log.Warn("post-mutation refresh failed", "category", categoryID, "err", err)
		return Result{Success: true, SpokenText: spoken}, nil
	}
	return Result{Success: true, SpokenText: spoken, Delta: Entries(categoryID, items)}, nil
}

// Entries converts collaborator items into numbered listing rows
// (reserved rows not included).
func Entries(categoryID string, items []Item) []catalog.Entry {
	out := make([]catalog.Entry, len(items))
	for i, it := range items {
		out[i] = catalog.Entry{
			Number:   i + 1,
			NodeID:   fmt.Sprintf("%s/%d", categoryID, i+1),
			Label:    it.Label,
			Kind:     catalog.KindLeafItem,
			Editable: it.Editable,
			Media:    it.Media,
		}
	}
	return out
}
