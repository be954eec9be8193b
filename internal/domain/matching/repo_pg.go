package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmatch/docmatch/internal/platform/db"
)

type reportRepoPG struct {
	pool *pgxpool.Pool
}

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository {
	return &reportRepoPG{pool: pool}
}

func (r *reportRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const reportColumns = `id, email, disease_name, organ, specialization, specialization_key,
	description, matched_doctor_id, created_at`

func (r *reportRepoPG) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO disease_reports (
			id, email, disease_name, organ, specialization, specialization_key,
			description, matched_doctor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rep.ID, rep.Email, rep.DiseaseName, rep.Organ, rep.Specialization, rep.SpecializationKey,
		rep.Description, rep.MatchedDoctorID, rep.CreatedAt,
	)
	return err
}

func (r *reportRepoPG) LatestByEmail(ctx context.Context, email string) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, `
		SELECT `+reportColumns+` FROM disease_reports
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errReportNotFound
	}
	return rep, err
}

func (r *reportRepoPG) ListByEmail(ctx context.Context, email string, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM disease_reports WHERE email = $1`, email).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reportColumns+` FROM disease_reports
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, email, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, total, rows.Err()
}

func (r *reportRepoPG) AttachUnmatched(ctx context.Context, specializationKey string, doctorID uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE disease_reports SET matched_doctor_id = $2
		WHERE specialization_key = $1 AND matched_doctor_id IS NULL`, specializationKey, doctorID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *reportRepoPG) StatsBySpecialization(ctx context.Context) ([]SpecializationStats, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT specialization, COUNT(*), COUNT(matched_doctor_id)
		FROM disease_reports
		GROUP BY specialization
		ORDER BY specialization`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SpecializationStats
	for rows.Next() {
		var s SpecializationStats
		if err := rows.Scan(&s.Specialization, &s.Total, &s.Matched); err != nil {
			return nil, err
		}
		s.Unmatched = s.Total - s.Matched
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(
		&rep.ID, &rep.Email, &rep.DiseaseName, &rep.Organ, &rep.Specialization, &rep.SpecializationKey,
		&rep.Description, &rep.MatchedDoctorID, &rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
