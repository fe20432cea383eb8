package source

import (
	"context"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/model"
)

// Kind names one of the three fleet resources the digest is built from.
type Kind string

const (
	Vehicles         Kind = "vehicles"
	Issues           Kind = "issues"
	ServiceReminders Kind = "service_reminders"
)

// Kinds lists every resource in pipeline order.
func Kinds() []Kind { return []Kind{Vehicles, Issues, ServiceReminders} }

// Path is the resource path relative to the API base URL.
func (k Kind) Path() string { return string(k) }

func (k Kind) String() string { return string(k) }

// Fetcher returns the raw records of one resource kind for a date window.
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]model.RawRecord, error)
}
