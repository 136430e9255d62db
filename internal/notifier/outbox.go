package notifier

import (
	"context"
	"encoding/json"

	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/outbox"
	"github.com/avelsher/slotbook/libs/db"
)

// OutboxNotifier stages appointment events in the outbox table; the publisher
// moves them to Kafka and the consumer does the actual sending. Each insert
// runs in its own short transaction, after the appointment write committed.
type OutboxNotifier struct {
	pool *db.Pool
	repo *outbox.Repository
}

func NewOutboxNotifier(pool *db.Pool, repo *outbox.Repository) *OutboxNotifier {
	return &OutboxNotifier{pool: pool, repo: repo}
}

func (n *OutboxNotifier) AppointmentBooked(ctx context.Context, appt model.Appointment) error {
	return n.stage(ctx, outbox.EventBooked, eventFor("booked", appt))
}

func (n *OutboxNotifier) AppointmentConfirmed(ctx context.Context, appt model.Appointment) error {
	return n.stage(ctx, outbox.EventConfirmed, eventFor("confirmed", appt))
}

func (n *OutboxNotifier) AppointmentCancelled(ctx context.Context, appt model.Appointment) error {
	return n.stage(ctx, outbox.EventCancelled, eventFor("cancelled", appt))
}

func (n *OutboxNotifier) RescheduleRequested(ctx context.Context, appt model.Appointment, message string) error {
	evt := eventFor("needs_reschedule", appt)
	evt.Note = message
	return n.stage(ctx, outbox.EventNeedsReschedule, evt)
}

func (n *OutboxNotifier) EmployeeAssigned(ctx context.Context, emp model.Employee, appt model.Appointment) error {
	evt := eventFor("assigned", appt)
	evt.EmployeeName = emp.Name
	evt.EmployeeEmail = emp.Email
	return n.stage(ctx, outbox.EventEmployeeAssigned, evt)
}

func (n *OutboxNotifier) stage(ctx context.Context, eventType string, evt AppointmentEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	tx, err := n.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := n.repo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   evt.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
