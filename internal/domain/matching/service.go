package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docmatch/docmatch/internal/domain/availability"
	"github.com/docmatch/docmatch/internal/domain/diseasemap"
	"github.com/docmatch/docmatch/internal/domain/directory"
)

// DoctorFinder is the slice of the doctor directory the resolver needs.
// It returns directory.ErrNotFound when no doctor matches.
type DoctorFinder interface {
	FindBySpecialization(ctx context.Context, specialization string) (*directory.Doctor, error)
}

// Service resolves a patient's disease to a specialist and keeps the
// resulting reports.
type Service struct {
	table   *diseasemap.Table
	reports ReportRepository
	doctors DoctorFinder
	clock   availability.Clock
	logger  zerolog.Logger
}

func NewService(table *diseasemap.Table, reports ReportRepository, doctors DoctorFinder, logger zerolog.Logger) *Service {
	return &Service{
		table:   table,
		reports: reports,
		doctors: doctors,
		clock:   availability.SystemClock{},
		logger:  logger.With().Str("component", "matching").Logger(),
	}
}

func (s *Service) SetClock(c availability.Clock) {
	s.clock = c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// findDoctor returns nil without error when no doctor has the specialization.
func (s *Service) findDoctor(ctx context.Context, specialization string) (*directory.Doctor, error) {
	d, err := s.doctors.FindBySpecialization(ctx, specialization)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", specialization, err)
	}
	return d, nil
}

// Resolve maps diseaseName to a specialist, stores the report and returns
// the match. Unknown diseases are rejected before anything is stored.
func (s *Service) Resolve(ctx context.Context, email, diseaseName, description string) (*Result, error) {
	email = normalizeEmail(email)
	diseaseName = strings.TrimSpace(diseaseName)
	description = strings.TrimSpace(description)
	switch {
	case email == "":
		return nil, &ValidationError{Field: "email"}
	case diseaseName == "":
		return nil, &ValidationError{Field: "diseaseName"}
	case description == "":
		return nil, &ValidationError{Field: "description"}
	}

	entry, err := s.table.Lookup(diseaseName)
	if err != nil {
		s.logger.Info().Str("disease", diseaseName).Msg("disease not in mapping table")
		return nil, ErrUnknownDisease
	}

	doctor, err := s.findDoctor(ctx, entry.Specialization)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Email:             email,
		DiseaseName:       entry.Disease,
		Organ:             entry.Organ,
		Specialization:    entry.Specialization,
		SpecializationKey: diseasemap.NormalizeSpecialization(entry.Specialization),
		Description:       description,
		CreatedAt:         s.clock.Now().UTC().Truncate(time.Millisecond),
	}
	if doctor != nil {
		id := doctor.ID
		report.MatchedDoctorID = &id
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("store disease report: %w", err)
	}

	res := &Result{Matched: doctor != nil, Report: report}
	if doctor != nil {
		res.Doctor = matchFromDoctor(doctor)
	}
	s.logger.Debug().
		Str("report_id", report.ID.String()).
		Str("specialization", entry.Specialization).
		Bool("matched", res.Matched).
		Msg("disease report resolved")
	return res, nil
}

// GetPatientReport returns the patient's most recent report and the doctor
// the current table and directory would match it to now.
func (s *Service) GetPatientReport(ctx context.Context, email string) (*PatientView, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, &ValidationError{Field: "email"}
	}

	report, err := s.reports.LatestByEmail(ctx, email)
	if errors.Is(err, errReportNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest report: %w", err)
	}

	entry, err := s.table.Lookup(report.DiseaseName)
	if err != nil {
		s.logger.Warn().
			Str("report_id", report.ID.String()).
			Str("disease", report.DiseaseName).
			Msg("stored report disease missing from mapping table")
		return nil, ErrMappingInconsistency
	}

	doctor, err := s.findDoctor(ctx, entry.Specialization)
	if err != nil {
		return nil, err
	}
	view := &PatientView{Report: report}
	if doctor != nil {
		view.MatchedDoctor = matchFromDoctor(doctor)
	}
	return view, nil
}

// ListPatientReports returns a patient's report history, newest first.
func (s *Service) ListPatientReports(ctx context.Context, email string, limit, offset int) ([]*Report, int, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, 0, &ValidationError{Field: "email"}
	}
	return s.reports.ListByEmail(ctx, email, limit, offset)
}

// Backfill attaches an approved doctor to the unmatched reports waiting on
// their specialization.
func (s *Service) Backfill(ctx context.Context, doctor *directory.Doctor) (int, error) {
	if doctor == nil || doctor.ApprovalStatus != directory.StatusApproved {
		return 0, nil
	}
	key := doctor.SpecializationKey
	if key == "" {
		key = diseasemap.NormalizeSpecialization(doctor.Specialization)
	}
	n, err := s.reports.AttachUnmatched(ctx, key, doctor.ID)
	if err != nil {
		return 0, fmt.Errorf("backfill reports for %s: %w", doctor.ID, err)
	}
	if n > 0 {
		s.logger.Info().
			Str("doctor_id", doctor.ID.String()).
			Str("specialization", doctor.Specialization).
			Int("reports", n).
			Msg("attached doctor to waiting reports")
	}
	return n, nil
}

// BackfillAll runs Backfill for the current match of every specialization
// in the mapping table.
func (s *Service) BackfillAll(ctx context.Context) (int, error) {
	total := 0
	for _, spec := range s.table.Specializations() {
		doctor, err := s.findDoctor(ctx, spec)
		if err != nil {
			return total, err
		}
		if doctor == nil {
			continue
		}
		n, err := s.Backfill(ctx, doctor)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Stats returns report counts per specialization.
func (s *Service) Stats(ctx context.Context) ([]SpecializationStats, error) {
	return s.reports.StatsBySpecialization(ctx)
}
