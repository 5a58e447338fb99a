package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const patientColumns = `id::text, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''), created_at, updated_at`

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores patients in the patients table. Email uniqueness
// is enforced by a unique index on lower(email).
type PostgresRepository struct {
	db pgQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithExec(db pgQuerier) *PostgresRepository {
	if db == nil {
		panic("patients: exec required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, p *NewPatient) (*Patient, bool, error) {
	if p.Email != "" {
		existing, err := r.GetByEmail(ctx, p.Email)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrPatientNotFound) {
			return nil, false, err
		}
	}

	query := `
		INSERT INTO patients (id, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING ` + patientColumns
	patient, err := scanPatient(r.db.QueryRow(ctx, query, uuid.New(), p.FirstName, p.LastName, p.Email, p.Phone))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && p.Email != "" {
			// lost a race with a concurrent insert of the same email
			existing, getErr := r.GetByEmail(ctx, p.Email)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("patients: insert failed: %w", err)
	}
	return patient, true, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPatientNotFound
	}
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE lower(email) = $1`
	return r.getOne(ctx, query, NormalizeEmail(email))
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE phone = $1 ORDER BY created_at LIMIT 1`
	return r.getOne(ctx, query, phone)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, changes Changes) (*Patient, error) {
	query := `
		UPDATE patients SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + patientColumns
	patient, err := scanPatient(r.db.QueryRow(ctx, query, id, changes.FirstName, changes.LastName, changes.Email, changes.Phone))
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrPatientNotFound
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("patients: update failed: %w", err)
	}
	return patient, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.db.Query(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patients: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*Patient, error) {
	p, err := scanPatient(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
