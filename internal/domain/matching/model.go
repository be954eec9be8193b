package matching

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docmatch/docmatch/internal/domain/directory"
)

var (
	// ErrUnknownDisease means the disease is not in the mapping table. No
	// report is stored.
	ErrUnknownDisease = errors.New("no mapping found for this disease")
	// ErrPatientNotFound means no report exists for the email.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrMappingInconsistency means a stored report names a disease the
	// current mapping table no longer contains.
	ErrMappingInconsistency = errors.New("no mapping found for this disease")

	errReportNotFound = errors.New("report not found")
)

// ValidationError reports a missing or blank input field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Report maps to the disease_reports table. One row per submission.
type Report struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Email             string     `db:"email" json:"email"`
	DiseaseName       string     `db:"disease_name" json:"disease"`
	Organ             string     `db:"organ" json:"organ"`
	Specialization    string     `db:"specialization" json:"specialization"`
	SpecializationKey string     `db:"specialization_key" json:"-"`
	Description       string     `db:"description" json:"description"`
	MatchedDoctorID   *uuid.UUID `db:"matched_doctor_id" json:"matchedDoctorId,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
}

// ResolvedMatch is the doctor summary shown to a patient.
type ResolvedMatch struct {
	DoctorID       uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Specialization string    `json:"specialization"`
	Experience     int       `json:"experience"`
}

func matchFromDoctor(d *directory.Doctor) *ResolvedMatch {
	return &ResolvedMatch{
		DoctorID:       d.ID,
		Name:           d.FullName,
		Email:          d.Email,
		Phone:          d.Phone,
		Specialization: d.Specialization,
		Experience:     d.Experience,
	}
}

// Result is the outcome of Resolve.
type Result struct {
	Matched bool           `json:"matched"`
	Doctor  *ResolvedMatch `json:"doctor,omitempty"`
	Report  *Report        `json:"report"`
}

// PatientView is a patient's latest report with the doctor currently
// matched to it.
type PatientView struct {
	Report        *Report        `json:"patient"`
	MatchedDoctor *ResolvedMatch `json:"matchedDoctor"`
}

// SpecializationStats counts reports per specialization.
type SpecializationStats struct {
	Specialization string `json:"specialization"`
	Total          int    `json:"total"`
	Matched        int    `json:"matched"`
	Unmatched      int    `json:"unmatched"`
}
