package postgres

import (
	"context"

	"github.com/avelsher/slotbook/internal/notifier"
	"github.com/avelsher/slotbook/libs/db"
)

// NotificationLog records every delivery attempt, sent or failed.
type NotificationLog struct {
	pool *db.Pool
}

func NewNotificationLog(pool *db.Pool) *NotificationLog {
	return &NotificationLog{pool: pool}
}

func (r *NotificationLog) Insert(ctx context.Context, rec notifier.SendRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, event, channel, recipient, provider, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`, rec.AppointmentID, rec.Event, rec.Channel, rec.Recipient, rec.Provider, rec.Status, rec.Reason)
	return err
}
