// Package score holds the event data model: how raised events translate
// into additive and instant point contributions for the reward consumer.
package score

import "fmt"

// EventType describes one kind of scorable event. Immutable after
// configuration load.
type EventType struct {
	Name        string
	Description string
	// Additive events contribute an accumulating quantity over time;
	// non-additive ("instant") events contribute a one-shot quantity.
	Additive bool
	// ProportionalTo, when set, normalizes the raised amount before
	// scoring (amount / ProportionalTo).
	ProportionalTo *float64
	// Duration, when set, time-scales points by elapsed/duration. A
	// duration of 1 means "points per second while the condition holds".
	Duration *float64
	// Points is the base point value per occurrence.
	Points float64
}

// Event is one materialized occurrence of an EventType within a frame.
// The event set is frame-scoped: raised during one evaluation, consumed
// by the scoring side, discarded on the next tick.
type Event struct {
	Type *EventType
	// ID is either the explicit id from the raising command or one
	// generated by the frame cycle. Duplicate explicit ids within one
	// frame are a configuration error, enforced by the cycle.
	ID string
	// Amount is the raised magnitude; nil means 1.
	Amount *float64
}

// ScaledAmount returns amount normalized by the proportionality
// denominator, or 1 for non-proportional types.
func (e Event) ScaledAmount() float64 {
	if e.Type == nil || e.Type.ProportionalTo == nil {
		return 1
	}
	amount := 1.0
	if e.Amount != nil {
		amount = *e.Amount
	}
	return amount / *e.Type.ProportionalTo
}

// Points splits the event's contribution for a tick of deltaTime seconds
// into its additive and instant buckets. Exactly one of the two is
// nonzero for a typed event.
func (e Event) Points(deltaTime float64) (additive, instant float64) {
	if e.Type == nil {
		return 0, 0
	}
	points := e.Type.Points * e.ScaledAmount()
	if e.Type.Duration != nil && *e.Type.Duration != 0 {
		points *= deltaTime / *e.Type.Duration
	}
	if e.Type.Additive {
		return points, 0
	}
	return 0, points
}

func (e Event) String() string {
	if e.Type == nil {
		return "event with no type"
	}
	amount := 1.0
	if e.Amount != nil {
		amount = *e.Amount
	}
	return fmt.Sprintf("event %s (%g)", e.Type.Name, amount)
}
