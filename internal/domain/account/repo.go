package account

import (
	"context"

	"github.com/google/uuid"
)

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// MarkPhoneVerified flags every account whose phone is one of phones and
	// returns how many changed.
	MarkPhoneVerified(ctx context.Context, phones []string) (int, error)
}
