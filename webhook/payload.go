package webhook

import (
	"time"

	"github.com/cromulus/reminders-cli-sub001/change"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// EventTest is the event name of deliveries sent by SendTest.
const EventTest = "test"

// Payload is the JSON body POSTed to subscribers.
type Payload struct {
	Event     string     `json:"event"`
	Timestamp time.Time  `json:"timestamp"`
	Reminder  *task.Task `json:"reminder"`
}

// NewPayload builds the delivery body for ev.
func NewPayload(ev change.Event) Payload {
	return Payload{Event: string(ev.Kind), Timestamp: ev.Timestamp, Reminder: ev.Task}
}
