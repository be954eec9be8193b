package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docmatch/docmatch/internal/domain/directory"
	"github.com/docmatch/docmatch/internal/platform/auth"
	"github.com/docmatch/docmatch/internal/platform/otp"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

const minPasswordLength = 6

// Transactor runs fn in one storage transaction. Repositories join it
// through the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DoctorRegistrar creates the directory record for a doctor signup and
// removes it again when the account cannot be stored.
type DoctorRegistrar interface {
	RegisterDoctor(ctx context.Context, in directory.RegisterInput) (*directory.Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
}

// ReportBackfiller attaches a new doctor to reports that were waiting for
// their specialization.
type ReportBackfiller interface {
	Backfill(ctx context.Context, doctor *directory.Doctor) (int, error)
}

type Service struct {
	repo     AccountRepository
	doctors  DoctorRegistrar
	backfill ReportBackfiller
	tx       Transactor
	hasher   auth.PasswordHasher
	issuer   *auth.TokenIssuer
	otp      *otp.Service
	logger   zerolog.Logger
}

func NewService(
	repo AccountRepository,
	doctors DoctorRegistrar,
	backfill ReportBackfiller,
	tx Transactor,
	hasher auth.PasswordHasher,
	issuer *auth.TokenIssuer,
	otpSvc *otp.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		doctors:  doctors,
		backfill: backfill,
		tx:       tx,
		hasher:   hasher,
		issuer:   issuer,
		otp:      otpSvc,
		logger:   logger.With().Str("component", "account").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePatient(in SignupInput) (*Account, error) {
	a := &Account{
		FullName: strings.TrimSpace(in.FullName),
		Email:    normalizeEmail(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Role:     RolePatient,
	}
	switch {
	case a.FullName == "":
		return nil, &ValidationError{Field: "fullName", Message: "is required"}
	case a.Email == "":
		return nil, &ValidationError{Field: "email", Message: "is required"}
	case a.Phone == "":
		return nil, &ValidationError{Field: "phone", Message: "is required"}
	case in.Password == "":
		return nil, &ValidationError{Field: "password", Message: "is required"}
	}
	if !emailPattern.MatchString(a.Email) {
		return nil, &ValidationError{Field: "email", Message: "invalid email format"}
	}
	if !phonePattern.MatchString(a.Phone) {
		return nil, &ValidationError{Field: "phone", Message: "invalid phone number format (10 digits required)"}
	}
	if len(in.Password) < minPasswordLength {
		return nil, &ValidationError{Field: "password", Message: "must be at least 6 characters long"}
	}
	return a, nil
}

// Signup creates a patient or doctor account. A doctor signup also creates
// the directory record in the same transaction, then attaches the doctor to
// any reports already waiting for their specialization.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Account, error) {
	userType := strings.ToLower(strings.TrimSpace(in.UserType))
	if userType == "" {
		userType = RolePatient
	}
	switch userType {
	case RolePatient:
		return s.signupPatient(ctx, in)
	case RoleDoctor:
		return s.signupDoctor(ctx, in)
	default:
		return nil, &ValidationError{Field: "userType", Message: "must be patient or doctor"}
	}
}

func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check existing account: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (s *Service) signupPatient(ctx context.Context, in SignupInput) (*Account, error) {
	a, err := validatePatient(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, a.Email); err != nil {
		return nil, err
	}
	if a.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info().Str("account_id", a.ID.String()).Str("role", a.Role).Msg("account created")
	return a, nil
}

func (s *Service) signupDoctor(ctx context.Context, in SignupInput) (*Account, error) {
	reg := in.registerInput()
	if _, err := directory.ValidateRegistration(reg); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if err := s.checkEmailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var (
		acct       *Account
		doctor     *directory.Doctor
		registered *directory.Doctor
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.doctors.RegisterDoctor(ctx, reg)
		if err != nil {
			return err
		}
		id := d.ID
		a := &Account{
			FullName:     d.FullName,
			Email:        d.Email,
			Phone:        d.Phone,
			PasswordHash: hash,
			Role:         RoleDoctor,
			DoctorID:     &id,
		}
		registered = d
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		acct, doctor = a, d
		return nil
	})
	if err != nil {
		if registered != nil {
			s.removeOrphan(ctx, registered.ID)
		}
		var ve *directory.ValidationError
		if errors.As(err, &ve) || errors.Is(err, directory.ErrDuplicate) || errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("register doctor: %w", err)
	}

	s.logger.Info().
		Str("account_id", acct.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Msg("doctor account created")

	if s.backfill != nil {
		if _, err := s.backfill.Backfill(ctx, doctor); err != nil {
			s.logger.Error().Err(err).Str("doctor_id", doctor.ID.String()).Msg("report backfill failed")
		}
	}
	return acct, nil
}

// removeOrphan deletes a directory record whose account was never stored.
// A rolled back transaction has already removed it; stores without
// multi-document transactions have not.
func (s *Service) removeOrphan(ctx context.Context, id uuid.UUID) {
	err := s.doctors.DeleteDoctor(ctx, id)
	if err == nil || errors.Is(err, directory.ErrNotFound) {
		return
	}
	s.logger.Error().Err(err).Str("doctor_id", id.String()).Msg("failed to remove directory record after signup failure")
}

// CreateAdmin creates an administrator account. It is not reachable over
// HTTP.
func (s *Service) CreateAdmin(ctx context.Context, in SignupInput) (*Account, error) {
	a, err := validatePatient(in)
	if err != nil {
		return nil, err
	}
	a.Role = RoleAdmin
	if err := s.checkEmailFree(ctx, a.Email); err != nil {
		return nil, err
	}
	if a.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info().Str("account_id", a.ID.String()).Msg("admin account created")
	return a, nil
}

// Signin checks the password and issues a session token. Unknown emails and
// wrong passwords return the same error.
func (s *Service) Signin(ctx context.Context, email, password string) (*SigninResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, &ValidationError{Field: "email", Message: "email and password are required"}
	}

	a, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err := s.hasher.Compare(a.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Debug().Str("account_id", a.ID.String()).Msg("signin password mismatch")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var doctorID string
	if a.DoctorID != nil {
		doctorID = a.DoctorID.String()
	}
	token, exp, err := s.issuer.Issue(a.ID.String(), a.Email, []string{a.Role}, doctorID)
	if err != nil {
		return nil, err
	}
	return &SigninResult{Token: token, ExpiresAt: exp, Account: a}, nil
}

// SendOTP sends a verification code to phone.
func (s *Service) SendOTP(ctx context.Context, phone string) (*otp.SendResult, error) {
	return s.otp.Send(ctx, phone)
}

// VerifyOTP checks code and, on success, marks every account registered
// with that phone number as verified.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	ok, err := s.otp.Verify(ctx, phone, code)
	if err != nil || !ok {
		return ok, err
	}

	e164, err := s.otp.NormalizePhone(phone)
	if err != nil {
		return false, err
	}
	candidates := []string{e164}
	if len(e164) > 10 {
		candidates = append(candidates, e164[len(e164)-10:])
	}
	n, err := s.repo.MarkPhoneVerified(ctx, candidates)
	if err != nil {
		return false, fmt.Errorf("mark phone verified: %w", err)
	}
	s.logger.Info().Str("phone", e164).Int("accounts", n).Msg("phone verified")
	return true, nil
}
