package catalog

import (
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindCategory Kind = "category"
	KindLeafItem Kind = "item"
	KindAction   Kind = "action"
)

// Reserved trailing slots. Every listing ends with these two, in this order.
const (
	ReservedRepeatID = "repetir"
	ReservedBackID   = "voltar"

	ReservedRepeatLabel = "repetir opções"
	ReservedBackLabel   = "voltar ao menu principal"
)

type Node struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Kind     Kind   `yaml:"kind"`
	Editable bool   `yaml:"editable"`
	Playable bool   `yaml:"playable"`
	Source   string `yaml:"source"`
}

// Entry is one numbered row of a spoken listing, including the two
// reserved rows.
type Entry struct {
	Number   int    `json:"number"`
	NodeID   string `json:"node_id"`
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
	Editable bool   `json:"editable"`
	Media    string `json:"media,omitempty"`
}

func (e Entry) Reserved() bool {
	return e.NodeID == ReservedRepeatID || e.NodeID == ReservedBackID
}

// Lister supplies the live children of a dynamic category. Implemented by
// the file-backed list provider.
type Lister interface {
	ListEntries(categoryID string) ([]Entry, error)
}

type menusFile struct {
	Menus []Node `yaml:"menus"`
}

// Catalog holds the static menu hierarchy and resolves numbered listings.
// Dynamic categories pull their children from the Lister; results are cached
// until Invalidate is called (the directory watcher does that when the
// desktop GUI rewrites a list file).
type Catalog struct {
	lister Lister

	mu    sync.RWMutex
	root  []Node
	cache map[string][]Entry
}

func Load(path string, lister Lister) (*Catalog, error) {
	c := &Catalog{lister: lister, cache: make(map[string][]Entry)}
	if err := c.Reload(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the menu definition and drops all cached listings.
func (c *Catalog) Reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read menus: %w", err)
	}

	var def menusFile
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("parse menus: %w", err)
	}
	if len(def.Menus) == 0 {
		return fmt.Errorf("menus file %q defines no menus", path)
	}
	for _, n := range def.Menus {
		if n.ID == "" || n.Label == "" {
			return fmt.Errorf("menu entry missing id or label")
		}
	}

	c.mu.Lock()
	c.root = def.Menus
	c.cache = make(map[string][]Entry)
	c.mu.Unlock()

	log.Info("catalog loaded", "menus", len(def.Menus))
	return nil
}

// Root returns the top-level listing.
func (c *Catalog) Root() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.root)+2)
	for i, n := range c.root {
		entries = append(entries, Entry{
			Number:   i + 1,
			NodeID:   n.ID,
			Label:    n.Label,
			Kind:     n.Kind,
			Editable: n.Editable,
		})
	}
	return WithReserved(entries)
}

// ResolveListing returns the numbered children of the node addressed by
// menuPath. An empty path addresses the root. Only category nodes have
// children; the path is a sequence of display numbers as selected.
func (c *Catalog) ResolveListing(menuPath []int) ([]Entry, error) {
	if len(menuPath) == 0 {
		return c.Root(), nil
	}

	node, err := c.nodeAt(menuPath[0])
	if err != nil {
		return nil, err
	}
	if node.Kind != KindCategory {
		return nil, fmt.Errorf("menu %q has no sublisting", node.ID)
	}

	c.mu.RLock()
	cached, ok := c.cache[node.ID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	children, err := c.lister.ListEntries(node.ID)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", node.ID, err)
	}
	for i := range children {
		children[i].Number = i + 1
		if children[i].Kind == "" {
			children[i].Kind = KindLeafItem
		}
		children[i].Editable = node.Editable
	}
	listing := WithReserved(children)

	c.mu.Lock()
	c.cache[node.ID] = listing
	c.mu.Unlock()
	return listing, nil
}

// IsEditable reports whether the category identified by nodeID accepts
// dictated edits.
func (c *Catalog) IsEditable(nodeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.root {
		if n.ID == nodeID {
			return n.Editable
		}
	}
	return false
}

// CategoryByNumber maps a root display number to its node id.
func (c *Catalog) CategoryByNumber(n int) (Node, error) {
	return c.nodeAt(n)
}

// CategoryByLabel finds a root category whose id or label matches the given
// spoken name. Used by redirect targets ("redirecionar para favoritos").
func (c *Catalog) CategoryByLabel(name string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.root {
		if n.Kind != KindCategory {
			continue
		}
		if strings.EqualFold(n.ID, name) || strings.EqualFold(n.Label, name) {
			return n, true
		}
	}
	return Node{}, false
}

// Invalidate drops the cached listing of one category, or every cached
// listing when categoryID is empty.
func (c *Catalog) Invalidate(categoryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if categoryID == "" {
		c.cache = make(map[string][]Entry)
		return
	}
	delete(c.cache, categoryID)
}

func (c *Catalog) nodeAt(number int) (Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if number < 1 || number > len(c.root) {
		return Node{}, fmt.Errorf("no menu with number %d", number)
	}
	return c.root[number-1], nil
}

// WithReserved appends the two reserved rows after the real content,
// renumbering nothing: content occupies 1..N, repeat is N+1, back is N+2.
func WithReserved(entries []Entry) []Entry {
	n := len(entries)
	out := make([]Entry, 0, n+2)
	out = append(out, entries...)
	out = append(out,
		Entry{Number: n + 1, NodeID: ReservedRepeatID, Label: ReservedRepeatLabel, Kind: KindAction},
		Entry{Number: n + 2, NodeID: ReservedBackID, Label: ReservedBackLabel, Kind: KindAction},
	)
	return out
}
