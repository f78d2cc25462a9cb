// Package filelists backs the ListProvider contract with per-category JSON
// files, the same files the desktop panels edit. Layout:
//
//	{"items": [{"label": "...", "body": "...", "media": "...", "editable": true}]}
package filelists

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"voxnav/internal/catalog"
	"voxnav/internal/dispatch"
)

// Provider reads and mutates list files under dir. Mutations rewrite the
// file atomically (temp + rename); there is no versioning, the last editor
// wins, which is the contract the voice and desktop sides agreed on.
type Provider struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) (*Provider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lists dir: %w", err)
	}
	return &Provider{dir: dir}, nil
}

func (p *Provider) GetListing(ctx context.Context, categoryID string) ([]dispatch.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := p.read(categoryID)
	if err != nil {
		return nil, err
	}

	var items []dispatch.Item
	for _, it := range gjson.GetBytes(raw, "items").Array() {
		items = append(items, itemFrom(it))
	}
	return items, nil
}

func (p *Provider) GetItem(ctx context.Context, categoryID string, number int) (dispatch.Item, error) {
	if err := ctx.Err(); err != nil {
		return dispatch.Item{}, err
	}
	raw, err := p.read(categoryID)
	if err != nil {
		return dispatch.Item{}, err
	}

	it := gjson.GetBytes(raw, fmt.Sprintf("items.%d", number-1))
	if !it.Exists() {
		return dispatch.Item{}, fmt.Errorf("no item %d in %q", number, categoryID)
	}
	return itemFrom(it), nil
}

func (p *Provider) CommitEdit(ctx context.Context, categoryID string, number int, field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := p.read(categoryID)
	if err != nil {
		return err
	}
	idx := number - 1
	if !gjson.GetBytes(raw, fmt.Sprintf("items.%d", idx)).Exists() {
		return fmt.Errorf("no item %d in %q", number, categoryID)
	}

	key, err := fieldKey(field)
	if err != nil {
		return err
	}
	updated, err := sjson.SetBytes(raw, fmt.Sprintf("items.%d.%s", idx, key), value)
	if err != nil {
		return fmt.Errorf("set %s on item %d: %w", key, number, err)
	}
	return p.write(categoryID, updated)
}

func (p *Provider) MoveItem(ctx context.Context, categoryID string, number int, destCategoryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	srcRaw, err := p.read(categoryID)
	if err != nil {
		return err
	}
	idx := number - 1
	item := gjson.GetBytes(srcRaw, fmt.Sprintf("items.%d", idx))
	if !item.Exists() {
		return fmt.Errorf("no item %d in %q", number, categoryID)
	}

	destRaw, err := p.read(destCategoryID)
	if err != nil {
		return err
	}
	destUpdated, err := sjson.SetRawBytes(destRaw, "items.-1", []byte(item.Raw))
	if err != nil {
		return fmt.Errorf("append to %q: %w", destCategoryID, err)
	}
	srcUpdated, err := sjson.DeleteBytes(srcRaw, fmt.Sprintf("items.%d", idx))
	if err != nil {
		return fmt.Errorf("remove from %q: %w", categoryID, err)
	}

	// Append lands first; a crash between the two writes duplicates the
	// item rather than losing it.
	if err := p.write(destCategoryID, destUpdated); err != nil {
		return err
	}
	return p.write(categoryID, srcUpdated)
}

func (p *Provider) read(categoryID string) ([]byte, error) {
	raw, err := os.ReadFile(p.path(categoryID))
	if err != nil {
		if os.IsNotExist(err) {
			return []byte(`{"items":[]}`), nil
		}
		return nil, fmt.Errorf("read list %q: %w", categoryID, err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("list %q is not valid JSON", categoryID)
	}
	return raw, nil
}

func (p *Provider) write(categoryID string, raw []byte) error {
	tmp, err := os.CreateTemp(p.dir, ".list-*")
	if err != nil {
		return fmt.Errorf("temp list file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write list %q: %w", categoryID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close list file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path(categoryID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit list %q: %w", categoryID, err)
	}
	return nil
}

func (p *Provider) path(categoryID string) string {
	return filepath.Join(p.dir, categoryID+".json")
}

// ListEntries adapts the provider to the catalog's Lister contract.
func (p *Provider) ListEntries(categoryID string) ([]catalog.Entry, error) {
	items, err := p.GetListing(context.Background(), categoryID)
	if err != nil {
		return nil, err
	}
	return dispatch.Entries(categoryID, items), nil
}

func itemFrom(it gjson.Result) dispatch.Item {
	return dispatch.Item{
		Label:    it.Get("label").String(),
		Body:     it.Get("body").String(),
		Media:    it.Get("media").String(),
		Editable: it.Get("editable").Bool(),
	}
}

func fieldKey(field string) (string, error) {
	switch field {
	case "texto", "body":
		return "body", nil
	case "rotulo", "label":
		return "label", nil
	}
	return "", fmt.Errorf("unknown field %q", field)
}
