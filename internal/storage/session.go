package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session 会话实体
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CommandCount int       `json:"command_count"`
	LastStatus   string    `json:"last_status"`
}

// GetSession 获取会话
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := db.QueryRowContext(ctx,
		"SELECT id, created_at, updated_at, command_count, last_status FROM sessions WHERE id = ?",
		id,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.CommandCount, &s.LastStatus)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions 按最近活动时间倒序列出会话
func (db *DB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, created_at, updated_at, command_count, last_status FROM sessions ORDER BY updated_at DESC LIMIT ?",
		limitOrDefault(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.CommandCount, &s.LastStatus); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// touchSession 不存在则创建，存在则累加命令计数
func (tx *Tx) touchSession(ctx context.Context, id, status string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, command_count, last_status)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			command_count = sessions.command_count + 1,
			last_status = excluded.last_status
	`, id, at, at, status)
	return err
}
