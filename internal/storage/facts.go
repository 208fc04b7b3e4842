package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hostpilot/internal/facts"
	"hostpilot/internal/tools"
)

// FactRecord 一条持久化的事实记录
type FactRecord struct {
	ID        int64                `json:"id"`
	SessionID string               `json:"session_id"`
	Query     string               `json:"query"`
	Facts     facts.ExtractedFacts `json:"facts"`
	CreatedAt time.Time            `json:"created_at"`
}

// FactsStore 实现 pipeline.FactsStore，只存储提取后的事实，不保存原始工具输出
type FactsStore struct {
	db  *DB
	now func() time.Time
}

// NewFactsStore 创建事实存储
func NewFactsStore(db *DB) *FactsStore {
	return &FactsStore{db: db, now: time.Now}
}

// Store 写入一条事实记录
func (s *FactsStore) Store(ctx context.Context, f facts.ExtractedFacts, query, sessionID string) error {
	payload := f.Facts
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO facts (session_id, tool, domain, status, facts, summary, query, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		sessionID, f.Tool, f.Domain, string(f.Status), string(data), f.Summary, query, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}
	return nil
}

// ListFacts 按时间倒序列出事实；sessionID 为空时列出所有会话
func (s *FactsStore) ListFacts(ctx context.Context, sessionID string, limit int) ([]FactRecord, error) {
	query := "SELECT id, session_id, tool, domain, status, facts, summary, query, created_at FROM facts"
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limitOrDefault(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FactRecord
	for rows.Next() {
		var (
			r      FactRecord
			status string
			data   string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Facts.Tool, &r.Facts.Domain, &status, &data, &r.Facts.Summary, &r.Query, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Facts.Status = tools.Status(status)
		if err := json.Unmarshal([]byte(data), &r.Facts.Facts); err != nil {
			return nil, fmt.Errorf("decode facts %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
