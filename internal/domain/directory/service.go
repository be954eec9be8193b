package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docmatch/docmatch/internal/domain/availability"
	"github.com/docmatch/docmatch/internal/domain/diseasemap"
	"github.com/docmatch/docmatch/internal/platform/events"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

const minPasswordLength = 6

type Service struct {
	repo      DoctorRepository
	evaluator *availability.Evaluator
	publisher events.Publisher
	clock     availability.Clock
	logger    zerolog.Logger
}

func NewService(repo DoctorRepository, evaluator *availability.Evaluator, publisher events.Publisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		publisher: publisher,
		clock:     availability.SystemClock{},
		logger:    logger.With().Str("component", "directory").Logger(),
	}
}

// SetClock replaces the clock used for availability stamps and evaluation.
func (s *Service) SetClock(c availability.Clock) {
	s.clock = c
}

// now is truncated to the coarsest precision of the supported stores so a
// stamp read back compares equal to the one written.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

// ValidateRegistration applies the doctor signup rules and returns the
// normalized record without storing it.
func ValidateRegistration(in RegisterInput) (*Doctor, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	spec := strings.TrimSpace(in.Specialization)

	switch {
	case fullName == "":
		return nil, &ValidationError{Field: "fullName", Message: "is required"}
	case email == "":
		return nil, &ValidationError{Field: "email", Message: "is required"}
	case phone == "":
		return nil, &ValidationError{Field: "phone", Message: "is required"}
	case in.Password == "":
		return nil, &ValidationError{Field: "password", Message: "is required"}
	case spec == "":
		return nil, &ValidationError{Field: "specialization", Message: "is required"}
	case in.Experience == nil:
		return nil, &ValidationError{Field: "experience", Message: "is required"}
	case in.AvailableFrom == nil:
		return nil, &ValidationError{Field: "availableFrom", Message: "is required"}
	case in.AvailableTo == nil:
		return nil, &ValidationError{Field: "availableTo", Message: "is required"}
	}

	if !emailPattern.MatchString(email) {
		return nil, &ValidationError{Field: "email", Message: "invalid email format"}
	}
	if !phonePattern.MatchString(phone) {
		return nil, &ValidationError{Field: "phone", Message: "invalid phone number format (10 digits required)"}
	}
	if len(in.Password) < minPasswordLength {
		return nil, &ValidationError{Field: "password", Message: "must be at least 6 characters long"}
	}
	if *in.Experience < 0 {
		return nil, &ValidationError{Field: "experience", Message: "must be a non-negative number"}
	}
	from, to := int(*in.AvailableFrom), int(*in.AvailableTo)
	if from < 0 || from > 24 || to < 0 || to > 24 {
		return nil, &ValidationError{Field: "availableFrom", Message: "hours must be between 0 and 24"}
	}
	if from >= to {
		return nil, &ValidationError{Field: "availableTo", Message: "must be later than availableFrom"}
	}

	return &Doctor{
		FullName:          fullName,
		Email:             email,
		Phone:             phone,
		Specialization:    spec,
		SpecializationKey: diseasemap.NormalizeSpecialization(spec),
		Experience:        int(*in.Experience),
		AvailableFrom:     from,
		AvailableTo:       to,
	}, nil
}

// RegisterDoctor validates and stores a new doctor. New doctors are
// approved and online, matching the signup flow they come from.
func (s *Service) RegisterDoctor(ctx context.Context, in RegisterInput) (*Doctor, error) {
	d, err := ValidateRegistration(in)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmailOrPhone(ctx, d.Email, d.Phone)
	if err != nil {
		return nil, fmt.Errorf("check existing doctor: %w", err)
	}
	if exists {
		return nil, ErrDuplicate
	}

	d.ApprovalStatus = StatusApproved
	d.IsOnline = true
	d.LastAvailabilityUpdateAt = s.now()
	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create doctor: %w", err)
	}

	s.logger.Info().
		Str("doctor_id", d.ID.String()).
		Str("specialization", d.Specialization).
		Msg("doctor registered")
	return d, nil
}

// view evaluates availability and publishes when a stale flag was reset.
func (s *Service) view(ctx context.Context, d *Doctor) *DoctorView {
	now := s.now()
	res := s.evaluator.Evaluate(ctx, d.AvailabilityRecord(), now)
	if res.WroteBack {
		d.IsOnline = true
		d.LastAvailabilityUpdateAt = now
		s.publish(ctx, events.AvailabilityChanged{
			DoctorID: d.ID, IsOnline: true, Reason: events.ReasonDefaultedAvailable, At: now,
		})
	}
	return &DoctorView{Doctor: d, Availability: res}
}

func (s *Service) publish(ctx context.Context, ev events.AvailabilityChanged) {
	if err := s.publisher.PublishAvailability(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("doctor_id", ev.DoctorID.String()).
			Msg("publish availability event failed")
	}
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorView, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d), nil
}

func (s *Service) GetDoctorByEmail(ctx context.Context, email string) (*DoctorView, error) {
	d, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d), nil
}

func (s *Service) ListDoctors(ctx context.Context, filter ListFilter, limit, offset int) ([]*DoctorView, int, error) {
	doctors, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*DoctorView, 0, len(doctors))
	for _, d := range doctors {
		views = append(views, s.view(ctx, d))
	}
	return views, total, nil
}

// ListAll pages through every doctor matching filter without evaluating
// availability. Used for exports.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]*Doctor, error) {
	const page = 200
	var out []*Doctor
	for offset := 0; ; offset += page {
		batch, total, err := s.repo.List(ctx, filter, page, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < page || offset+page >= total {
			return out, nil
		}
	}
}

// FindBySpecialization returns the doctor a patient with this
// specialization need is matched to, or ErrNotFound.
func (s *Service) FindBySpecialization(ctx context.Context, specialization string) (*Doctor, error) {
	return s.repo.FindBySpecialization(ctx, diseasemap.NormalizeSpecialization(specialization))
}

// SetAvailability records the doctor's own online toggle.
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, online bool) (*DoctorView, error) {
	now := s.now()
	if err := s.repo.SetAvailability(ctx, id, online, now); err != nil {
		return nil, err
	}
	s.publish(ctx, events.AvailabilityChanged{DoctorID: id, IsOnline: online, Reason: events.ReasonToggle, At: now})

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DoctorView{
		Doctor:       d,
		Availability: availability.Result{EffectiveStatus: d.IsOnline, Reason: availability.ReasonFresh},
	}, nil
}

// ToggleAvailability flips the status the doctor currently presents.
func (s *Service) ToggleAvailability(ctx context.Context, id uuid.UUID) (*DoctorView, error) {
	current, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetAvailability(ctx, id, !current.Availability.EffectiveStatus)
}

// SetApprovalStatus changes a doctor's admin approval. Only approved
// doctors are matched to patients.
func (s *Service) SetApprovalStatus(ctx context.Context, id uuid.UUID, status string) (*Doctor, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validApprovalStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "must be pending, approved or rejected"}
	}
	if err := s.repo.SetApprovalStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", id.String()).Str("status", status).Msg("doctor approval status changed")
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
