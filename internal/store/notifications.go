package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/evidenca/internal/model"
)

func insertNotification(ctx context.Context, q querier, block string, recordID *int64, message string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO notifications (block, record_id, message) VALUES (?, ?, ?)`,
		block, recordID, message,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListNotifications returns the notifications of a block, newest first.
func ListNotifications(ctx context.Context, db *sql.DB, block string) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, block, record_id, message, created_at FROM notifications
		 WHERE block = ? ORDER BY created_at DESC, id DESC`, block,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Block, &n.RecordID, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// DeleteNotification dismisses a notification of block.
func DeleteNotification(ctx context.Context, db *sql.DB, block string, id int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND block = ?`, id, block,
	)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return expectOne(result, ErrNotFound)
}
