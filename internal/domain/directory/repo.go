package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DoctorRepository defines the persistence interface for doctor records.
// Lookups return ErrNotFound when nothing matches.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	// FindBySpecialization returns the approved doctor with the given
	// normalized specialization that registered first, lowest id on ties.
	FindBySpecialization(ctx context.Context, specializationKey string) (*Doctor, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Doctor, int, error)
	Update(ctx context.Context, d *Doctor) error
	SetAvailability(ctx context.Context, id uuid.UUID, online bool, at time.Time) error
	// ResetAvailabilityIfStale sets is_online and stamps now only while the
	// stored timestamp still equals seen.
	ResetAvailabilityIfStale(ctx context.Context, id uuid.UUID, seen, now time.Time) (bool, error)
	SetApprovalStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
