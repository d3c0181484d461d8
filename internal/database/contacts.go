package database

import (
	"context"
	"fmt"
	"time"

	"arena/internal/models"
)

func (db *DB) CreateContact(ctx context.Context, contact *models.Contact) error {
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO contacts (name, phone, email, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		contact.Name, contact.Phone, contact.Email, contact.Message, contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	contact.ID = id
	return nil
}

// ListContacts returns submissions newest first.
func (db *DB) ListContacts(ctx context.Context) ([]*models.Contact, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, phone, email, message, created_at FROM contacts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}
