package notifier

import (
	"fmt"
	"time"
)

// Message is a rendered notification, ready for the email and SMS senders.
type Message struct {
	Subject   string
	EmailBody string
	SMSBody   string
}

// Render builds the client-facing message for an appointment event in the
// client's language. baseURL is the public site root used for cancel and
// rebooking links.
func Render(evt AppointmentEvent, baseURL string) Message {
	when := formatStart(evt.StartTime, evt.ClientLanguage)
	cancelLink := baseURL + "/cancel?token=" + evt.CancelToken
	bookLink := baseURL + "/book"

	if evt.ClientLanguage == "es" {
		return renderSpanish(evt, when, cancelLink, bookLink)
	}
	return renderEnglish(evt, when, cancelLink, bookLink)
}

func renderEnglish(evt AppointmentEvent, when, cancelLink, bookLink string) Message {
	switch evt.Event {
	case "booked":
		return Message{
			Subject: "Appointment request received",
			EmailBody: fmt.Sprintf(
				"Hi %s,\n\nWe received your %s request for %s. We will confirm it shortly.\n\nNeed to cancel? %s\n",
				evt.ClientName, evt.AppointmentType, when, cancelLink),
			SMSBody: fmt.Sprintf("We received your %s request for %s. Cancel: %s", evt.AppointmentType, when, cancelLink),
		}
	case "confirmed":
		return Message{
			Subject: "Appointment confirmed",
			EmailBody: fmt.Sprintf(
				"Hi %s,\n\nYour %s on %s is confirmed.%s\n\nNeed to cancel? %s\n",
				evt.ClientName, evt.AppointmentType, when, addressLine(evt, "en"), cancelLink),
			SMSBody: fmt.Sprintf("Confirmed: %s on %s. Cancel: %s", evt.AppointmentType, when, cancelLink),
		}
	case "cancelled":
		return Message{
			Subject: "Appointment cancelled",
			EmailBody: fmt.Sprintf(
				"Hi %s,\n\nYour %s on %s has been cancelled.\n\nBook a new time: %s\n",
				evt.ClientName, evt.AppointmentType, when, bookLink),
			SMSBody: fmt.Sprintf("Cancelled: %s on %s. Rebook: %s", evt.AppointmentType, when, bookLink),
		}
	case "needs_reschedule":
		note := ""
		if evt.Note != "" {
			note = "\n\nNote from our team: " + evt.Note
		}
		return Message{
			Subject: "Please pick a new time",
			EmailBody: fmt.Sprintf(
				"Hi %s,\n\nWe can no longer keep your %s on %s and need to reschedule.%s\n\nPick a new time: %s\nCancel instead: %s\n",
				evt.ClientName, evt.AppointmentType, when, note, bookLink, cancelLink),
			SMSBody: fmt.Sprintf("We need to reschedule your %s on %s. Pick a new time: %s", evt.AppointmentType, when, bookLink),
		}
	default:
		return Message{}
	}
}

func renderSpanish(evt AppointmentEvent, when, cancelLink, bookLink string) Message {
	kind := typeSpanish(evt.AppointmentType)
	switch evt.Event {
	case "booked":
		return Message{
			Subject: "Solicitud de cita recibida",
			EmailBody: fmt.Sprintf(
				"Hola %s:\n\nRecibimos su solicitud de %s para el %s. La confirmaremos pronto.\n\n¿Necesita cancelar? %s\n",
				evt.ClientName, kind, when, cancelLink),
			SMSBody: fmt.Sprintf("Recibimos su solicitud de %s para el %s. Cancelar: %s", kind, when, cancelLink),
		}
	case "confirmed":
		return Message{
			Subject: "Cita confirmada",
			EmailBody: fmt.Sprintf(
				"Hola %s:\n\nSu %s del %s está confirmada.%s\n\n¿Necesita cancelar? %s\n",
				evt.ClientName, kind, when, addressLine(evt, "es"), cancelLink),
			SMSBody: fmt.Sprintf("Confirmada: %s el %s. Cancelar: %s", kind, when, cancelLink),
		}
	case "cancelled":
		return Message{
			Subject: "Cita cancelada",
			EmailBody: fmt.Sprintf(
				"Hola %s:\n\nSu %s del %s ha sido cancelada.\n\nReserve una nueva: %s\n",
				evt.ClientName, kind, when, bookLink),
			SMSBody: fmt.Sprintf("Cancelada: %s el %s. Reservar otra: %s", kind, when, bookLink),
		}
	case "needs_reschedule":
		note := ""
		if evt.Note != "" {
			note = "\n\nNota de nuestro equipo: " + evt.Note
		}
		return Message{
			Subject: "Por favor elija un nuevo horario",
			EmailBody: fmt.Sprintf(
				"Hola %s:\n\nNo podemos mantener su %s del %s y necesitamos reprogramarla.%s\n\nElija un nuevo horario: %s\nO cancele: %s\n",
				evt.ClientName, kind, when, note, bookLink, cancelLink),
			SMSBody: fmt.Sprintf("Necesitamos reprogramar su %s del %s. Elija un nuevo horario: %s", kind, when, bookLink),
		}
	default:
		return Message{}
	}
}

// RenderAssignment builds the internal message sent to an employee when an
// appointment lands on their calendar. Always English.
func RenderAssignment(evt AppointmentEvent) Message {
	when := formatStart(evt.StartTime, "en")
	body := fmt.Sprintf(
		"You have been assigned a %s on %s for %s (%s, %s).%s\n",
		evt.AppointmentType, when, evt.ClientName, evt.ClientEmail, evt.ClientPhone, addressLine(evt, "en"))
	return Message{
		Subject:   "New appointment assigned",
		EmailBody: body,
		SMSBody:   fmt.Sprintf("New %s on %s for %s.", evt.AppointmentType, when, evt.ClientName),
	}
}

// RenderAdminAlert builds the internal staff alert for a new booking request.
// Always English.
func RenderAdminAlert(evt AppointmentEvent) Message {
	when := formatStart(evt.StartTime, "en")
	assignee := "unassigned"
	if evt.EmployeeName != "" {
		assignee = evt.EmployeeName
	}
	body := fmt.Sprintf(
		"New %s request on %s for %s (%s, %s). Assigned to: %s.%s\n",
		evt.AppointmentType, when, evt.ClientName, evt.ClientEmail, evt.ClientPhone,
		assignee, addressLine(evt, "en"))
	return Message{
		Subject:   "New appointment request",
		EmailBody: body,
	}
}

func addressLine(evt AppointmentEvent, lang string) string {
	if evt.LocationAddress == "" {
		return ""
	}
	if lang == "es" {
		return "\n\nDirección: " + evt.LocationAddress
	}
	return "\n\nAddress: " + evt.LocationAddress
}

func formatStart(rfc3339 string, lang string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	if lang == "es" {
		return fmt.Sprintf("%s de %s de %d a las %s",
			t.Format("2"), monthSpanish(t.Month()), t.Year(), t.Format("15:04"))
	}
	return t.Format("Monday, January 2, 2006 at 3:04 PM")
}

func monthSpanish(m time.Month) string {
	names := [...]string{
		"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
	}
	return names[m-1]
}

func typeSpanish(t string) string {
	switch t {
	case "consultation":
		return "consulta"
	case "measurement":
		return "cita de medición"
	case "estimate":
		return "cita de presupuesto"
	case "followup":
		return "cita de seguimiento"
	default:
		return "cita"
	}
}
