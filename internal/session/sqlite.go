package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	log "log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps sessions in a single table. The upsert is one
// statement, so the atomic-save guarantee comes from sqlite itself.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS sessions (
		user_id    TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}

	log.Info("session store opened", "path", path)
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

func (st *SQLiteStore) Load(ctx context.Context, userID string) (*Session, error) {
	var state string
	var updated int64
	err := st.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM sessions WHERE user_id = ?`, userID,
	).Scan(&state, &updated)
	if err == sql.ErrNoRows {
		return New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(state), &s); err != nil {
		log.Warn("corrupt session record, starting fresh", "user", userID, "err", err)
		return New(userID), nil
	}
	s.UpdatedAt = time.UnixMilli(updated)
	if expired(&s, st.ttl) {
		return New(userID), nil
	}
	s.UserID = userID
	return &s, nil
}

func (st *SQLiteStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = st.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		s.UserID, string(raw), s.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (st *SQLiteStore) Reset(ctx context.Context, userID string) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (st *SQLiteStore) Close() error {
	return st.db.Close()
}
