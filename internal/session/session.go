package session

import (
	"time"

	"voxnav/internal/catalog"
)

// Level is where the user currently stands in the menu hierarchy.
type Level string

const (
	LevelMenu      Level = "MENU"
	LevelSubmenu   Level = "SUBMENU"
	LevelItem      Level = "ITEM"
	LevelEditField Level = "EDIT_FIELD"
)

// Depth is how many selections the menu path holds at this level.
func (l Level) Depth() int {
	switch l {
	case LevelMenu:
		return 0
	case LevelSubmenu:
		return 1
	case LevelItem, LevelEditField:
		return 2
	}
	return -1
}

// Session is the per-user dialog state carried between voice turns.
// LastListing is the snapshot of what was actually spoken to the user;
// number utterances resolve against it, never against fresh ground truth,
// since the user answers to what they heard.
type Session struct {
	UserID       string          `json:"user_id"`
	Level        Level           `json:"level"`
	MenuPath     []int           `json:"menu_path"`
	PendingField string          `json:"pending_field,omitempty"`
	LastListing  []catalog.Entry `json:"last_listing"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// New returns a fresh session at the main menu.
func New(userID string) *Session {
	return &Session{
		UserID:    userID,
		Level:     LevelMenu,
		UpdatedAt: time.Now(),
	}
}

// Clone deep-copies the session so a turn can be rolled back wholesale.
func (s *Session) Clone() *Session {
	cp := *s
	cp.MenuPath = append([]int(nil), s.MenuPath...)
	cp.LastListing = append([]catalog.Entry(nil), s.LastListing...)
	return &cp
}

// DepthOK reports whether the menu path length matches the level's depth.
// Holds after every transition; checked by tests, trusted at runtime.
func (s *Session) DepthOK() bool {
	return len(s.MenuPath) == s.Level.Depth()
}
