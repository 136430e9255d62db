package outbox

// Event is the envelope written to the outbox table. The Kafka topic name
// equals EventType, one topic per event.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Appointment event types carried through the outbox.
const (
	EventBooked           = "scheduling.appointment.booked.v1"
	EventConfirmed        = "scheduling.appointment.confirmed.v1"
	EventCancelled        = "scheduling.appointment.cancelled.v1"
	EventNeedsReschedule  = "scheduling.appointment.needs_reschedule.v1"
	EventEmployeeAssigned = "scheduling.appointment.assigned.v1"
)
