package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockDoctorRepo struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*Doctor
	clock   func() time.Time
}

func newMockDoctorRepo() *mockDoctorRepo {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return &mockDoctorRepo{
		doctors: make(map[uuid.UUID]*Doctor),
		clock: func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Minute)
		},
	}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.doctors {
		if existing.Email == d.Email || existing.Phone == d.Phone {
			return ErrDuplicate
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = m.clock()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) get(id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *mockDoctorRepo) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.doctors {
		if d.Email == email {
			return m.get(id)
		}
	}
	return nil, ErrNotFound
}

func (m *mockDoctorRepo) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.Email == email || d.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDoctorRepo) sorted(filter ListFilter) []*Doctor {
	var out []*Doctor
	for _, d := range m.doctors {
		if filter.SpecializationKey != "" && d.SpecializationKey != filter.SpecializationKey {
			continue
		}
		if filter.ApprovalStatus != "" && d.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *mockDoctorRepo) FindBySpecialization(_ context.Context, key string) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.sorted(ListFilter{SpecializationKey: key, ApprovalStatus: StatusApproved})
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (m *mockDoctorRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Doctor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.sorted(filter)
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) SetAvailability(_ context.Context, id uuid.UUID, online bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return ErrNotFound
	}
	d.IsOnline = online
	d.LastAvailabilityUpdateAt = at
	return nil
}

func (m *mockDoctorRepo) ResetAvailabilityIfStale(_ context.Context, id uuid.UUID, seen, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok || !d.LastAvailabilityUpdateAt.Equal(seen) {
		return false, nil
	}
	d.IsOnline = true
	d.LastAvailabilityUpdateAt = now
	return true, nil
}

func (m *mockDoctorRepo) SetApprovalStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return ErrNotFound
	}
	d.ApprovalStatus = status
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(m.doctors, id)
	return nil
}

// -- Recording publisher --

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventRecord
}

type eventRecord struct {
	doctorID uuid.UUID
	online   bool
	reason   string
}
