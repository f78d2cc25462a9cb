package session

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps one JSON file per user under dir. Writes go to a temp
// file in the same directory followed by a rename, so a crash mid-save
// leaves either the old or the new record, never a torn one.
type FileStore struct {
	dir string
	ttl time.Duration
}

func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl}, nil
}

func (fs *FileStore) Load(_ context.Context, userID string) (*Session, error) {
	raw, err := os.ReadFile(fs.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return New(userID), nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt record is treated like a missing one; the dialog
		// restarts at the main menu rather than failing the turn.
		log.Warn("corrupt session record, starting fresh", "user", userID, "err", err)
		return New(userID), nil
	}
	if expired(&s, fs.ttl) {
		return New(userID), nil
	}
	s.UserID = userID
	return &s, nil
}

func (fs *FileStore) Save(_ context.Context, s *Session) error {
	s.UpdatedAt = time.Now()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(fs.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("temp session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path(s.UserID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (fs *FileStore) Reset(_ context.Context, userID string) error {
	err := os.Remove(fs.path(userID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (fs *FileStore) path(userID string) string {
	return filepath.Join(fs.dir, sanitize(userID)+".json")
}

// sanitize keeps user ids filesystem-safe; platform ids carry dots and
// slashes freely.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, id)
}
