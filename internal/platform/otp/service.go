package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docmatch/docmatch/internal/platform/notification"
)

const codeLength = 6

var (
	ErrInvalidPhone = errors.New("phone must be 10 digits or E.164")
	ErrInvalidCode  = errors.New("code must be 6 digits")

	e164Pattern  = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	localPattern = regexp.MustCompile(`^[0-9]{10}$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

// SendResult is returned to the caller after a code is dispatched.
type SendResult struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"referenceId"`
}

// Service generates codes, stores them and sends them by SMS.
type Service struct {
	store         Store
	notifier      *notification.Notifier
	ttl           time.Duration
	defaultPrefix string
	logger        zerolog.Logger
}

func NewService(store Store, notifier *notification.Notifier, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		store:         store,
		notifier:      notifier,
		ttl:           ttl,
		defaultPrefix: "+91",
		logger:        logger.With().Str("component", "otp").Logger(),
	}
}

// NormalizePhone returns the E.164 form of phone. Bare 10-digit numbers get
// the default country prefix.
func (s *Service) NormalizePhone(phone string) (string, error) {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	switch {
	case e164Pattern.MatchString(phone):
		return phone, nil
	case localPattern.MatchString(phone):
		return s.defaultPrefix + phone, nil
	default:
		return "", ErrInvalidPhone
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n.Int64()), nil
}

// Send issues a fresh code for phone, replacing any earlier one.
func (s *Service) Send(ctx context.Context, phone string) (*SendResult, error) {
	to, err := s.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	if err := s.store.Save(ctx, to, code, s.ttl); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	minutes := strconv.Itoa(int(s.ttl.Round(time.Minute) / time.Minute))
	if err := s.notifier.SendTemplate(ctx, to, notification.TemplateOTP,
		map[string]string{"code": code, "minutes": minutes}); err != nil {
		return nil, err
	}

	ref := uuid.NewString()
	s.logger.Info().Str("phone", to).Str("reference_id", ref).Msg("verification code sent")
	return &SendResult{Success: true, ReferenceID: ref}, nil
}

// Verify reports whether code is the live code for phone. A correct code is
// consumed and cannot be used twice.
func (s *Service) Verify(ctx context.Context, phone, code string) (bool, error) {
	to, err := s.NormalizePhone(phone)
	if err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return false, ErrInvalidCode
	}
	ok, err := s.store.Consume(ctx, to, code)
	if errors.Is(err, ErrNoCode) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("phone", to).Msg("verification code mismatch")
	}
	return ok, nil
}
