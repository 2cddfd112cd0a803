// Package notify delivers Wrenchlog events to chat platforms (Slack,
// Discord, etc.) and runs the periodic due-task sweep.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// EventType identifies the kind of outbound event.
type EventType string

const (
	EventMileageUpdated EventType = "mileage_updated"
	EventTaskDue        EventType = "task_due"
)

// Event is an outbound notification payload.
type Event struct {
	Type     EventType
	UserID   uint
	Title    string
	Body     string
	Severity string // "info", "warning"
	Fields   []Field
}

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
}

// Adapter is the interface platform-specific sinks must satisfy.
type Adapter interface {
	// Name identifies the platform, e.g. "slack".
	Name() string

	// Send delivers one event to the platform.
	Send(ctx context.Context, ev Event) error

	// Close releases any platform resources.
	Close() error
}

// Dispatcher fans events out to all configured adapters. Delivery is
// best-effort: adapter failures are logged, never propagated, so a flaky
// chat integration cannot fail a mileage update.
type Dispatcher struct {
	adapters []Adapter
	log      *logrus.Logger
}

// NewDispatcher creates a Dispatcher over the given adapters.
func NewDispatcher(log *logrus.Logger, adapters ...Adapter) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{adapters: adapters, log: log}
}

// Publish sends the event to every adapter, logging failures.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	for _, a := range d.adapters {
		if err := a.Send(ctx, ev); err != nil {
			d.log.WithFields(logrus.Fields{
				"adapter": a.Name(),
				"event":   string(ev.Type),
				"user":    ev.UserID,
			}).WithError(err).Warn("notification delivery failed")
		}
	}
}

// Close shuts down all adapters, returning the first error encountered.
func (d *Dispatcher) Close() error {
	var first error
	for _, a := range d.adapters {
		if err := a.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
