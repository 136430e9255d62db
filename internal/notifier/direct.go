package notifier

import (
	"context"
	"sync"

	"github.com/avelsher/slotbook/internal/model"
)

// DirectNotifier sends in-process, skipping the outbox and Kafka. It is the
// single-node deployment path, selected when KAFKA_BROKERS is unset. Delivery
// runs on a goroutine detached from the request context so an HTTP response
// never waits on SMTP or webhook I/O.
type DirectNotifier struct {
	dispatcher *Dispatcher
	wg         sync.WaitGroup
}

func NewDirectNotifier(dispatcher *Dispatcher) *DirectNotifier {
	return &DirectNotifier{dispatcher: dispatcher}
}

func (n *DirectNotifier) AppointmentBooked(ctx context.Context, appt model.Appointment) error {
	return n.deliver(ctx, eventFor("booked", appt))
}

func (n *DirectNotifier) AppointmentConfirmed(ctx context.Context, appt model.Appointment) error {
	return n.deliver(ctx, eventFor("confirmed", appt))
}

func (n *DirectNotifier) AppointmentCancelled(ctx context.Context, appt model.Appointment) error {
	return n.deliver(ctx, eventFor("cancelled", appt))
}

func (n *DirectNotifier) RescheduleRequested(ctx context.Context, appt model.Appointment, message string) error {
	evt := eventFor("needs_reschedule", appt)
	evt.Note = message
	return n.deliver(ctx, evt)
}

func (n *DirectNotifier) EmployeeAssigned(ctx context.Context, emp model.Employee, appt model.Appointment) error {
	evt := eventFor("assigned", appt)
	evt.EmployeeName = emp.Name
	evt.EmployeeEmail = emp.Email
	return n.deliver(ctx, evt)
}

func (n *DirectNotifier) deliver(ctx context.Context, evt AppointmentEvent) error {
	// The request context may be cancelled as soon as the response is written;
	// delivery keeps its trace values but outlives the request.
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.dispatcher.Deliver(ctx, evt); err != nil {
			n.dispatcher.logger.Error("direct delivery failed",
				"event", evt.Event, "appointment_id", evt.AppointmentID, "err", err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight delivery has finished. Called on
// shutdown so queued messages are not dropped.
func (n *DirectNotifier) Wait() {
	n.wg.Wait()
}
