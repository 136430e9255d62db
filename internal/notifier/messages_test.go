package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/avelsher/slotbook/internal/model"
)

func sampleEvent(event, lang string) AppointmentEvent {
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	return AppointmentEvent{
		AppointmentID:   "a-1",
		Event:           event,
		ClientName:      "Carla Reyes",
		ClientEmail:     "carla@example.com",
		ClientPhone:     "+1 555 0100",
		ClientLanguage:  lang,
		AppointmentType: "measurement",
		StartTime:       start.Format(time.RFC3339),
		DurationMinutes: 90,
		LocationAddress: "12 Oak St",
		CancelToken:     "tok123",
	}
}

func TestRenderEnglishConfirmed(t *testing.T) {
	msg := Render(sampleEvent("confirmed", "en"), "https://example.com")
	if msg.Subject != "Appointment confirmed" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Carla Reyes", "measurement", "Tuesday, March 3, 2026", "12 Oak St", "https://example.com/cancel?token=tok123"} {
		if !strings.Contains(msg.EmailBody, want) {
			t.Fatalf("email body missing %q:\n%s", want, msg.EmailBody)
		}
	}
	if !strings.Contains(msg.SMSBody, "https://example.com/cancel?token=tok123") {
		t.Fatalf("sms body missing cancel link: %s", msg.SMSBody)
	}
}

func TestRenderSpanishBooked(t *testing.T) {
	msg := Render(sampleEvent("booked", "es"), "https://example.com")
	if msg.Subject != "Solicitud de cita recibida" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Hola Carla Reyes", "cita de medición", "3 de marzo de 2026", "cancelar"} {
		if !strings.Contains(msg.EmailBody, want) {
			t.Fatalf("email body missing %q:\n%s", want, msg.EmailBody)
		}
	}
}

func TestRenderRescheduleCarriesNoteAndLinks(t *testing.T) {
	evt := sampleEvent("needs_reschedule", "en")
	evt.Note = "crew out sick"
	msg := Render(evt, "https://example.com")
	for _, want := range []string{"crew out sick", "https://example.com/book", "https://example.com/cancel?token=tok123"} {
		if !strings.Contains(msg.EmailBody, want) {
			t.Fatalf("email body missing %q:\n%s", want, msg.EmailBody)
		}
	}
}

func TestRenderUnknownLanguageFallsBackToEnglish(t *testing.T) {
	msg := Render(sampleEvent("cancelled", ""), "https://example.com")
	if msg.Subject != "Appointment cancelled" {
		t.Fatalf("subject = %q", msg.Subject)
	}
}

func TestRenderAssignment(t *testing.T) {
	evt := sampleEvent("assigned", "en")
	evt.EmployeeName = "Ana"
	evt.EmployeeEmail = "ana@example.com"
	msg := RenderAssignment(evt)
	for _, want := range []string{"Carla Reyes", "carla@example.com", "measurement"} {
		if !strings.Contains(msg.EmailBody, want) {
			t.Fatalf("assignment body missing %q:\n%s", want, msg.EmailBody)
		}
	}
}

type captureEmail struct {
	to      []string
	subject []string
	err     error
}

func (c *captureEmail) Send(to, subject, body string) error {
	c.to = append(c.to, to)
	c.subject = append(c.subject, subject)
	return c.err
}

type captureSMS struct {
	to []string
}

func (c *captureSMS) Send(_ context.Context, to, _ string) error {
	c.to = append(c.to, to)
	return nil
}

func (c *captureSMS) ProviderID() string { return "sms-test" }

type captureLog struct {
	recs []SendRecord
}

func (c *captureLog) Insert(_ context.Context, rec SendRecord) error {
	c.recs = append(c.recs, rec)
	return nil
}

func TestDirectNotifierDeliversBothChannels(t *testing.T) {
	emailSender := &captureEmail{}
	smsSender := &captureSMS{}
	log := &captureLog{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(logger, emailSender, smsSender, log, "https://example.com", "")
	n := NewDirectNotifier(d)

	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	appt := model.Appointment{
		ID:              "a-1",
		ClientName:      "Carla Reyes",
		ClientEmail:     "carla@example.com",
		ClientPhone:     "+1 555 0100",
		ClientLanguage:  "en",
		Type:            model.TypeConsultation,
		StartTime:       start,
		DurationMinutes: 60,
		CancelToken:     "tok123",
	}
	if err := n.AppointmentBooked(context.Background(), appt); err != nil {
		t.Fatalf("AppointmentBooked: %v", err)
	}
	n.Wait()

	if len(emailSender.to) != 1 || emailSender.to[0] != "carla@example.com" {
		t.Fatalf("email to = %v", emailSender.to)
	}
	if len(smsSender.to) != 1 || smsSender.to[0] != "+1 555 0100" {
		t.Fatalf("sms to = %v", smsSender.to)
	}
	if len(log.recs) != 2 {
		t.Fatalf("records = %+v", log.recs)
	}
	for _, rec := range log.recs {
		if rec.Status != "sent" || rec.Event != "booked" {
			t.Fatalf("record = %+v", rec)
		}
		switch rec.Channel {
		case "email":
			if rec.Provider != "" {
				t.Fatalf("email record provider = %q", rec.Provider)
			}
		case "sms":
			if rec.Provider != "sms-test" {
				t.Fatalf("sms record provider = %q", rec.Provider)
			}
		}
	}
}

type blockingEmail struct {
	release chan struct{}
	to      chan string
}

func (b *blockingEmail) Send(to, _, _ string) error {
	<-b.release
	b.to <- to
	return nil
}

func TestDirectNotifierDoesNotBlockCaller(t *testing.T) {
	sender := &blockingEmail{release: make(chan struct{}), to: make(chan string, 1)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(logger, sender, &captureSMS{}, nil, "https://example.com", "")
	n := NewDirectNotifier(d)

	appt := model.Appointment{
		ID:          "a-1",
		ClientName:  "Carla Reyes",
		ClientEmail: "carla@example.com",
		Type:        model.TypeConsultation,
		StartTime:   time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		CancelToken: "tok123",
	}

	done := make(chan struct{})
	go func() {
		if err := n.AppointmentBooked(context.Background(), appt); err != nil {
			t.Errorf("AppointmentBooked: %v", err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AppointmentBooked waited on the email sender")
	}

	close(sender.release)
	n.Wait()
	if to := <-sender.to; to != "carla@example.com" {
		t.Fatalf("email to = %q", to)
	}
}

func TestDispatcherAlertsStaffOnBooking(t *testing.T) {
	emailSender := &captureEmail{}
	log := &captureLog{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(logger, emailSender, &captureSMS{}, log, "https://example.com", "staff@example.com")

	evt := sampleEvent("booked", "en")
	evt.ClientPhone = ""
	if err := d.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(emailSender.to) != 2 || emailSender.to[1] != "staff@example.com" {
		t.Fatalf("email to = %v", emailSender.to)
	}
	if emailSender.subject[1] != "New appointment request" {
		t.Fatalf("subject = %q", emailSender.subject[1])
	}
	if len(log.recs) != 2 {
		t.Fatalf("records = %+v", log.recs)
	}

	// Only new bookings alert staff.
	emailSender.to = nil
	if err := d.Deliver(context.Background(), sampleEvent("confirmed", "en")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	for _, to := range emailSender.to {
		if to == "staff@example.com" {
			t.Fatalf("confirmed event alerted staff: %v", emailSender.to)
		}
	}
}

func TestDispatcherRecordsFailedSend(t *testing.T) {
	emailSender := &captureEmail{err: errors.New("smtp down")}
	log := &captureLog{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(logger, emailSender, &captureSMS{}, log, "https://example.com", "")

	evt := sampleEvent("confirmed", "en")
	evt.ClientPhone = ""
	if err := d.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(log.recs) != 1 || log.recs[0].Status != "failed" || log.recs[0].Reason == "" {
		t.Fatalf("records = %+v", log.recs)
	}
}

func TestDispatcherAssignmentGoesToEmployee(t *testing.T) {
	emailSender := &captureEmail{}
	smsSender := &captureSMS{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(logger, emailSender, smsSender, nil, "https://example.com", "")

	evt := sampleEvent("assigned", "en")
	evt.EmployeeName = "Ana"
	evt.EmployeeEmail = "ana@example.com"
	if err := d.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(emailSender.to) != 1 || emailSender.to[0] != "ana@example.com" {
		t.Fatalf("email to = %v", emailSender.to)
	}
	if len(smsSender.to) != 0 {
		t.Fatalf("sms to = %v, want none", smsSender.to)
	}
}
