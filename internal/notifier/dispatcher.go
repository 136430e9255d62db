package notifier

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/avelsher/slotbook/internal/notifier/email"
	"github.com/avelsher/slotbook/internal/notifier/sms"
)

// SendRecord is one delivery attempt on one channel. Provider identifies the
// SMS backend that handled the send; it is empty for email.
type SendRecord struct {
	AppointmentID string
	Event         string
	Channel       string
	Recipient     string
	Provider      string
	Status        string
	Reason        string
}

// SendLog persists delivery outcomes for auditing.
type SendLog interface {
	Insert(ctx context.Context, rec SendRecord) error
}

// Dispatcher renders an appointment event and delivers it over email and SMS.
// It sits on the consumer side of the Kafka pipeline and also backs
// DirectNotifier.
type Dispatcher struct {
	logger     *slog.Logger
	email      email.Sender
	sms        sms.Sender
	log        SendLog
	baseURL    string
	adminEmail string
}

func NewDispatcher(logger *slog.Logger, emailSender email.Sender, smsSender sms.Sender, log SendLog, baseURL, adminEmail string) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		email:      emailSender,
		sms:        smsSender,
		log:        log,
		baseURL:    baseURL,
		adminEmail: adminEmail,
	}
}

// Handle is the Kafka consumer handler. Malformed payloads are logged and
// dropped rather than retried; they will never become valid.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var evt AppointmentEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		d.logger.Error("invalid appointment event payload", "err", err, "topic", msg.Topic)
		return nil
	}
	if evt.AppointmentID == "" || evt.Event == "" {
		d.logger.Error("missing appointment event fields", "topic", msg.Topic)
		return nil
	}
	return d.Deliver(ctx, evt)
}

// Deliver sends the event's messages. The assigned event goes to the
// employee; everything else goes to the client on both channels.
func (d *Dispatcher) Deliver(ctx context.Context, evt AppointmentEvent) error {
	if evt.Event == "assigned" {
		if evt.EmployeeEmail == "" {
			d.logger.Warn("assignment without employee email", "appointment_id", evt.AppointmentID)
			return nil
		}
		msg := RenderAssignment(evt)
		return d.send(ctx, evt, "email", evt.EmployeeEmail, "", func() error {
			return d.email.Send(evt.EmployeeEmail, msg.Subject, msg.EmailBody)
		})
	}

	msg := Render(evt, d.baseURL)
	if msg.Subject == "" {
		d.logger.Error("unknown appointment event", "event", evt.Event)
		return nil
	}

	if err := d.send(ctx, evt, "email", evt.ClientEmail, "", func() error {
		return d.email.Send(evt.ClientEmail, msg.Subject, msg.EmailBody)
	}); err != nil {
		return err
	}
	if evt.ClientPhone != "" {
		if err := d.send(ctx, evt, "sms", evt.ClientPhone, d.sms.ProviderID(), func() error {
			return d.sms.Send(ctx, evt.ClientPhone, msg.SMSBody)
		}); err != nil {
			return err
		}
	}

	// New booking requests also alert staff, so unconfirmed appointments do
	// not sit unnoticed.
	if evt.Event == "booked" && d.adminEmail != "" {
		alert := RenderAdminAlert(evt)
		return d.send(ctx, evt, "email", d.adminEmail, "", func() error {
			return d.email.Send(d.adminEmail, alert.Subject, alert.EmailBody)
		})
	}
	return nil
}

// send runs one delivery and records the outcome. A failed send is logged and
// recorded but not returned; only a failure to persist the record bubbles up.
func (d *Dispatcher) send(ctx context.Context, evt AppointmentEvent, channel, recipient, provider string, deliver func() error) error {
	rec := SendRecord{
		AppointmentID: evt.AppointmentID,
		Event:         evt.Event,
		Channel:       channel,
		Recipient:     recipient,
		Provider:      provider,
		Status:        "sent",
	}
	if err := deliver(); err != nil {
		rec.Status = "failed"
		rec.Reason = err.Error()
		d.logger.Error("notification send failed", "channel", channel, "recipient", recipient, "err", err)
	}
	if d.log == nil {
		return nil
	}
	if err := d.log.Insert(ctx, rec); err != nil {
		d.logger.Error("failed to persist notification record", "err", err)
		return err
	}
	return nil
}
