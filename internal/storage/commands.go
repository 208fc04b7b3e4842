package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CommandRecord 命令审计记录
type CommandRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Response   string    `json:"response"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordCommand 写入一条命令审计记录，并更新所属会话的计数与最近状态
// ID 为空时自动生成
func (db *DB) RecordCommand(ctx context.Context, rec *CommandRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return db.WithTx(func(tx *Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO commands (id, session_id, text, type, status, response, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			rec.ID, rec.SessionID, rec.Text, rec.Type, rec.Status, rec.Response, rec.DurationMs, rec.CreatedAt,
		)
		if err != nil {
			return err
		}
		if rec.SessionID == "" {
			return nil
		}
		return tx.touchSession(ctx, rec.SessionID, rec.Status, rec.CreatedAt)
	})
}

// ListCommands 按时间倒序列出命令；sessionID 为空时列出所有会话
func (db *DB) ListCommands(ctx context.Context, sessionID string, limit int) ([]CommandRecord, error) {
	query := "SELECT id, session_id, text, type, status, response, duration_ms, created_at FROM commands"
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limitOrDefault(limit))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		var r CommandRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Text, &r.Type, &r.Status, &r.Response, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
