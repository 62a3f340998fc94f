package database

import (
	"context"
	"fmt"
	"time"

	"medcenter/internal/models"
)

func (db *DB) CreateContactMessage(ctx context.Context, m *models.ContactMessage) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO contact_messages (name, email, phone, subject, message, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`, m.Name, m.Email, m.Phone, m.Subject, m.Message, now)
	if err != nil {
		return fmt.Errorf("failed to create contact message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now
	return nil
}

// GetContactMessages returns the newest messages first.
func (db *DB) GetContactMessages(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT id, name, email, phone, subject, message, created_at
        FROM contact_messages ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact messages: %w", err)
	}
	defer rows.Close()

	var out []models.ContactMessage
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
