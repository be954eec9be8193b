package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docmatch/docmatch/internal/domain/directory"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a rejected signup or signin field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Account maps to the accounts table. Doctors also have a directory row
// linked through DoctorID.
type Account struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"fullName"`
	Email         string     `db:"email" json:"email"`
	Phone         string     `db:"phone" json:"phone"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          string     `db:"role" json:"userType"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctorId,omitempty"`
	PhoneVerified bool       `db:"phone_verified" json:"phoneVerified"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// SignupInput is the signup form. Doctor fields are ignored for patients.
// Older clients send the specialization as "expertise".
type SignupInput struct {
	FullName       string             `json:"fullName"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Password       string             `json:"password"`
	UserType       string             `json:"userType"`
	Specialization string             `json:"specialization"`
	Expertise      string             `json:"expertise"`
	Experience     *directory.FlexInt `json:"experience"`
	AvailableFrom  *directory.FlexInt `json:"availableFrom"`
	AvailableTo    *directory.FlexInt `json:"availableTo"`
}

func (in SignupInput) registerInput() directory.RegisterInput {
	spec := in.Specialization
	if spec == "" {
		spec = in.Expertise
	}
	return directory.RegisterInput{
		FullName:       in.FullName,
		Email:          in.Email,
		Phone:          in.Phone,
		Password:       in.Password,
		Specialization: spec,
		Experience:     in.Experience,
		AvailableFrom:  in.AvailableFrom,
		AvailableTo:    in.AvailableTo,
	}
}

// SigninResult is returned on successful signin.
type SigninResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Account   *Account  `json:"user"`
}
