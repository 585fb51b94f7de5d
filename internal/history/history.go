// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/rigchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("history store is closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the local transcript database. Safe for concurrent use; the
// connection pool is capped at one because SQLite serializes writers.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the transcript database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// RECORDING
// =============================================================================

// Record upserts a batch of reconciled messages for a chat. Re-recording
// the same server message is an overwrite, so reconciliation retries are
// harmless.
func (s *Store) Record(chatID string, msgs []model.Message) error {
	if s.db == nil {
		return ErrClosed
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO chats (id, updated_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, chatID, time.Now().Unix()); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for i := range msgs {
		m := &msgs[i]
		if _, err := tx.Exec(`
			INSERT INTO messages (id, chat_id, role, content, model_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(chat_id, id) DO UPDATE SET
				content = excluded.content,
				model_id = excluded.model_id
		`, m.ID.String(), chatID, m.Role.String(), m.Content, m.ModelID, m.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// SetChatInfo records chat metadata alongside its transcript.
func (s *Store) SetChatInfo(chatID, title, modelID string) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO chats (id, title, model_id, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model_id = excluded.model_id,
			updated_at = excluded.updated_at
	`, chatID, title, modelID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// ChatInfo is a past conversation summary.
type ChatInfo struct {
	ID           string
	Title        string
	ModelID      string
	UpdatedAt    time.Time
	MessageCount int
}

// RecentChats lists the most recently active chats, newest first.
func (s *Store) RecentChats(limit int) ([]ChatInfo, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.model_id, c.updated_at, COUNT(m.id)
		FROM chats c
		LEFT JOIN messages m ON m.chat_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []ChatInfo
	for rows.Next() {
		var info ChatInfo
		var updated int64
		if err := rows.Scan(&info.ID, &info.Title, &info.ModelID, &updated, &info.MessageCount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		info.UpdatedAt = time.Unix(updated, 0)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Messages returns a chat's stored transcript in creation order.
func (s *Store) Messages(chatID string) ([]model.Message, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT id, role, content, model_id, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at, id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var id, role string
		var created int64
		msg := model.Message{ChatID: chatID}
		if err := rows.Scan(&id, &role, &msg.Content, &msg.ModelID, &created); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		msg.ID = model.ServerID(id)
		msg.Role = model.Role(role)
		msg.CreatedAt = time.Unix(created, 0)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// SearchResult is one transcript search hit.
type SearchResult struct {
	ChatID    string
	ChatTitle string
	MessageID string
	Role      string
	Snippet   string
	CreatedAt time.Time
}

// Search finds messages whose content contains the query, newest first.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT m.chat_id, c.title, m.id, m.role,
		       substr(m.content, 1, 200), m.created_at
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE m.content LIKE '%' || ? || '%'
		ORDER BY m.created_at DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var created int64
		if err := rows.Scan(&r.ChatID, &r.ChatTitle, &r.MessageID, &r.Role, &r.Snippet, &created); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		r.CreatedAt = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
