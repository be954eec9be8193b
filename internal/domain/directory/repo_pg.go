package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmatch/docmatch/internal/platform/db"
)

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const doctorColumns = `id, full_name, email, phone, specialization, specialization_key,
	experience, available_from, available_to, approval_status,
	is_online, last_availability_update_at, created_at, updated_at`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (
			id, full_name, email, phone, specialization, specialization_key,
			experience, available_from, available_to, approval_status,
			is_online, last_availability_update_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		d.ID, d.FullName, d.Email, d.Phone, d.Specialization, d.SpecializationKey,
		d.Experience, d.AvailableFrom, d.AvailableTo, d.ApprovalStatus,
		d.IsOnline, d.LastAvailabilityUpdateAt,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE email = $1`, email))
}

func (r *doctorRepoPG) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE email = $1 OR phone = $2)`, email, phone,
	).Scan(&exists)
	return exists, err
}

func (r *doctorRepoPG) FindBySpecialization(ctx context.Context, specializationKey string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+doctorColumns+` FROM doctors
		WHERE specialization_key = $1 AND approval_status = $2
		ORDER BY created_at, id
		LIMIT 1`, specializationKey, StatusApproved))
}

func (r *doctorRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.SpecializationKey != "" {
		where += fmt.Sprintf(` AND specialization_key = $%d`, idx)
		args = append(args, filter.SpecializationKey)
		idx++
	}
	if filter.ApprovalStatus != "" {
		where += fmt.Sprintf(` AND approval_status = $%d`, idx)
		args = append(args, filter.ApprovalStatus)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorColumns + ` FROM doctors` + where +
		fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET
			full_name = $2, phone = $3, specialization = $4, specialization_key = $5,
			experience = $6, available_from = $7, available_to = $8, updated_at = NOW()
		WHERE id = $1`,
		d.ID, d.FullName, d.Phone, d.Specialization, d.SpecializationKey,
		d.Experience, d.AvailableFrom, d.AvailableTo,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) SetAvailability(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET is_online = $2, last_availability_update_at = $3, updated_at = NOW()
		WHERE id = $1`, id, online, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) ResetAvailabilityIfStale(ctx context.Context, id uuid.UUID, seen, now time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET is_online = TRUE, last_availability_update_at = $3, updated_at = NOW()
		WHERE id = $1 AND last_availability_update_at = $2`, id, seen, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *doctorRepoPG) SetApprovalStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET approval_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID, &d.FullName, &d.Email, &d.Phone, &d.Specialization, &d.SpecializationKey,
		&d.Experience, &d.AvailableFrom, &d.AvailableTo, &d.ApprovalStatus,
		&d.IsOnline, &d.LastAvailabilityUpdateAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
