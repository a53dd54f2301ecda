// Package calendar abstracts the organizer's calendar provider. The booking
// core only needs two operations: a batched busy-interval query and event
// creation with a conferencing link.
package calendar

import (
	"context"
	"time"
)

// Interval is a half-open busy span [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the interval intersects [start, end).
func (iv Interval) Overlaps(start, end time.Time) bool {
	return start.Before(iv.End) && end.After(iv.Start)
}

// EventInput describes the calendar event created when a lead books a slot.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	// RequestID keys conferencing-link creation so retried requests do not
	// mint duplicate meeting rooms.
	RequestID string
}

// Event is the created calendar entry.
type Event struct {
	ID          string `json:"id"`
	HTMLLink    string `json:"html_link"`
	MeetingLink string `json:"meeting_link"`
}

// Provider is the external calendar dependency of the booking core.
type Provider interface {
	// FreeBusy returns all busy intervals between from and to in one call.
	FreeBusy(ctx context.Context, from, to time.Time) ([]Interval, error)

	// CreateEvent creates an event with a generated conferencing link.
	CreateEvent(ctx context.Context, input EventInput) (*Event, error)
}
