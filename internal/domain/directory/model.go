package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docmatch/docmatch/internal/domain/availability"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	ErrNotFound  = errors.New("doctor not found")
	ErrDuplicate = errors.New("doctor already exists with this email or phone number")
)

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Doctor maps to the doctors table.
type Doctor struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	FullName                 string    `db:"full_name" json:"fullName"`
	Email                    string    `db:"email" json:"email"`
	Phone                    string    `db:"phone" json:"phone"`
	Specialization           string    `db:"specialization" json:"specialization"`
	SpecializationKey        string    `db:"specialization_key" json:"-"`
	Experience               int       `db:"experience" json:"experience"`
	AvailableFrom            int       `db:"available_from" json:"availableFrom"`
	AvailableTo              int       `db:"available_to" json:"availableTo"`
	ApprovalStatus           string    `db:"approval_status" json:"status"`
	IsOnline                 bool      `db:"is_online" json:"isOnline"`
	LastAvailabilityUpdateAt time.Time `db:"last_availability_update_at" json:"lastAvailabilityUpdateAt"`
	CreatedAt                time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time `db:"updated_at" json:"updatedAt"`
}

// AvailabilityRecord is the slice the evaluator works on.
func (d *Doctor) AvailabilityRecord() availability.Record {
	return availability.Record{
		DoctorID:                 d.ID,
		IsOnline:                 d.IsOnline,
		LastAvailabilityUpdateAt: d.LastAvailabilityUpdateAt,
	}
}

// DoctorView is a doctor with the availability callers should display.
type DoctorView struct {
	*Doctor
	Availability availability.Result `json:"availability"`
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	SpecializationKey string
	ApprovalStatus    string
}

// FlexInt accepts a JSON number or a numeric string, since the signup form
// posts hours as strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n := json.Number(s)
	if i, err := n.Int64(); err == nil {
		*f = FlexInt(i)
		return nil
	}
	fl, err := n.Float64()
	if err != nil {
		return fmt.Errorf("expected a whole number, got %s", string(b))
	}
	if fl != float64(int64(fl)) {
		return fmt.Errorf("expected a whole number, got %s", string(b))
	}
	*f = FlexInt(int64(fl))
	return nil
}

// RegisterInput is the doctor signup form. Numeric fields are pointers so
// a missing value can be told apart from zero.
type RegisterInput struct {
	FullName       string   `json:"fullName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Password       string   `json:"password"`
	Specialization string   `json:"specialization"`
	Experience     *FlexInt `json:"experience"`
	AvailableFrom  *FlexInt `json:"availableFrom"`
	AvailableTo    *FlexInt `json:"availableTo"`
}

func IntPtr(n int) *FlexInt {
	f := FlexInt(n)
	return &f
}

func validApprovalStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}
