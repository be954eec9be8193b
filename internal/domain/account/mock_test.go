package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/docmatch/docmatch/internal/domain/directory"
)

type mockAccountRepo struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*Account
	createErr error
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[uuid.UUID]*Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrEmailTaken
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockAccountRepo) MarkPhoneVerified(_ context.Context, phones []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.accounts {
		for _, p := range phones {
			if a.Phone == p && !a.PhoneVerified {
				a.PhoneVerified = true
				n++
			}
		}
	}
	return n, nil
}

// fakeRegistrar validates like the directory and remembers what it stored.
type fakeRegistrar struct {
	doctors []*directory.Doctor
	err     error
}

func (f *fakeRegistrar) RegisterDoctor(_ context.Context, in directory.RegisterInput) (*directory.Doctor, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, err := directory.ValidateRegistration(in)
	if err != nil {
		return nil, err
	}
	for _, existing := range f.doctors {
		if existing.Email == d.Email || existing.Phone == d.Phone {
			return nil, directory.ErrDuplicate
		}
	}
	d.ID = uuid.New()
	d.ApprovalStatus = directory.StatusApproved
	f.doctors = append(f.doctors, d)
	return d, nil
}

func (f *fakeRegistrar) DeleteDoctor(_ context.Context, id uuid.UUID) error {
	for i, d := range f.doctors {
		if d.ID == id {
			f.doctors = append(f.doctors[:i], f.doctors[i+1:]...)
			return nil
		}
	}
	return directory.ErrNotFound
}

type fakeBackfiller struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeBackfiller) Backfill(_ context.Context, d *directory.Doctor) (int, error) {
	f.calls = append(f.calls, d.ID)
	return 0, f.err
}

// fakeTx runs fn and counts calls. Failing makes it fail after fn succeeds,
// the way a commit error would.
type fakeTx struct {
	calls   int
	failing bool
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	if t.failing {
		return fmt.Errorf("commit transaction: connection lost")
	}
	return nil
}
