package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docmatch/docmatch/internal/domain/directory"
	"github.com/docmatch/docmatch/internal/domain/matching"
	"github.com/docmatch/docmatch/internal/platform/notification"
)

// DoctorAdmin is the part of the directory the admin tools change.
type DoctorAdmin interface {
	SetApprovalStatus(ctx context.Context, id uuid.UUID, status string) (*directory.Doctor, error)
	ListAll(ctx context.Context, filter directory.ListFilter) ([]*directory.Doctor, error)
}

// ReportAdmin is the part of the resolver the admin tools use.
type ReportAdmin interface {
	Backfill(ctx context.Context, doctor *directory.Doctor) (int, error)
	Stats(ctx context.Context) ([]matching.SpecializationStats, error)
}

// PhoneNormalizer turns a stored phone number into a dialable one.
type PhoneNormalizer func(phone string) (string, error)

type Service struct {
	doctors   DoctorAdmin
	reports   ReportAdmin
	notifier  *notification.Notifier
	normalize PhoneNormalizer
	logger    zerolog.Logger
}

func NewService(doctors DoctorAdmin, reports ReportAdmin, logger zerolog.Logger) *Service {
	return &Service{
		doctors: doctors,
		reports: reports,
		logger:  logger.With().Str("component", "admin").Logger(),
	}
}

// WithApprovalSMS makes approvals text the doctor.
func (s *Service) WithApprovalSMS(n *notification.Notifier, normalize PhoneNormalizer) *Service {
	s.notifier = n
	s.normalize = normalize
	return s
}

// StatusChange is the outcome of SetDoctorStatus.
type StatusChange struct {
	Doctor          *directory.Doctor `json:"doctor"`
	ReportsAttached int               `json:"reportsAttached"`
}

// SetDoctorStatus approves or rejects a doctor. Approval attaches the doctor
// to unmatched reports of their specialization.
func (s *Service) SetDoctorStatus(ctx context.Context, id uuid.UUID, status string) (*StatusChange, error) {
	d, err := s.doctors.SetApprovalStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	change := &StatusChange{Doctor: d}
	if d.ApprovalStatus != directory.StatusApproved {
		return change, nil
	}

	n, err := s.reports.Backfill(ctx, d)
	if err != nil {
		s.logger.Error().Err(err).Str("doctor_id", d.ID.String()).Msg("report backfill after approval failed")
	}
	change.ReportsAttached = n
	s.notifyApproved(ctx, d)
	return change, nil
}

func (s *Service) notifyApproved(ctx context.Context, d *directory.Doctor) {
	if s.notifier == nil {
		return
	}
	to := d.Phone
	if s.normalize != nil {
		var err error
		if to, err = s.normalize(d.Phone); err != nil {
			s.logger.Warn().Err(err).Str("doctor_id", d.ID.String()).Msg("cannot text doctor")
			return
		}
	}
	if err := s.notifier.SendTemplate(ctx, to, notification.TemplateDoctorApproved,
		map[string]string{"name": d.FullName}); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", d.ID.String()).Msg("approval sms failed")
	}
}

// ExportDoctors returns the directory, optionally filtered by status, as XLSX.
func (s *Service) ExportDoctors(ctx context.Context, status string) ([]byte, error) {
	if status == "all" {
		status = ""
	}
	doctors, err := s.doctors.ListAll(ctx, directory.ListFilter{ApprovalStatus: status})
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return GenerateDoctorExport(doctors)
}

// Stats summarizes reports per specialization.
type Stats struct {
	TotalReports     int                            `json:"totalReports"`
	MatchedReports   int                            `json:"matchedReports"`
	UnmatchedReports int                            `json:"unmatchedReports"`
	Specializations  []matching.SpecializationStats `json:"specializations"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.reports.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("report stats: %w", err)
	}
	out := &Stats{Specializations: rows}
	if out.Specializations == nil {
		out.Specializations = []matching.SpecializationStats{}
	}
	for _, r := range rows {
		out.TotalReports += r.Total
		out.MatchedReports += r.Matched
		out.UnmatchedReports += r.Unmatched
	}
	return out, nil
}
