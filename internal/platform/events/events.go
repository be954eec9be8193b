package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ReasonToggle             = "toggle"
	ReasonDefaultedAvailable = "defaulted-available"
	ReasonApproval           = "approval"
)

// AvailabilityChanged is emitted whenever a doctor's stored online flag
// changes, whether by the doctor or by a stale reset.
type AvailabilityChanged struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	IsOnline bool      `json:"is_online"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// Publisher fans availability changes out to subscribers. Publishing is
// best effort; callers log failures and carry on.
type Publisher interface {
	PublishAvailability(ctx context.Context, ev AvailabilityChanged) error
	Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAvailability(context.Context, AvailabilityChanged) error { return nil }

func (NopPublisher) Close() {}
