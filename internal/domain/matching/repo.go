package matching

import (
	"context"

	"github.com/google/uuid"
)

// ReportRepository defines the persistence interface for disease reports.
type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	// LatestByEmail returns the most recently created report for email.
	LatestByEmail(ctx context.Context, email string) (*Report, error)
	ListByEmail(ctx context.Context, email string, limit, offset int) ([]*Report, int, error)
	// AttachUnmatched sets matched_doctor_id on every unmatched report with
	// the given specialization key and returns how many changed.
	AttachUnmatched(ctx context.Context, specializationKey string, doctorID uuid.UUID) (int, error)
	StatsBySpecialization(ctx context.Context) ([]SpecializationStats, error)
}
