package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	targetNotFoundMsg = "target not found"
	targetExistsMsg   = "target already exists for this month"
)

const (
	StatusActive  = "ACTIVE"
	StatusDeleted = "DELETED"
)

type Target struct {
	ID        uuid.UUID
	Month     int
	Year      int
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TargetUpdate struct {
	Month  *int
	Year   *int
	Amount *decimal.Decimal
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const targetColumns = `id, month, year, amount, status, created_at, updated_at`

func scanTarget(row pgx.Row) (Target, error) {
	var t Target
	err := row.Scan(&t.ID, &t.Month, &t.Year, &t.Amount, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts an ACTIVE target. An ACTIVE target for the same month and
// year is a Conflict carrying the existing row.
func (r *Repository) Create(ctx context.Context, t Target) (Target, error) {
	existing, err := r.FindActive(ctx, t.Month, t.Year)
	if err == nil {
		return Target{}, apperr.Conflict(targetExistsMsg).WithDetails(existing)
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return Target{}, err
	}

	created, err := scanTarget(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO targets (month, year, amount) VALUES ($1, $2, $3)
		RETURNING `+targetColumns,
		t.Month, t.Year, t.Amount,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Target{}, r.conflict(ctx, t.Month, t.Year)
		}
		return Target{}, fmt.Errorf("insert target: %w", err)
	}
	return created, nil
}

func (r *Repository) FindActive(ctx context.Context, month, year int) (Target, error) {
	t, err := scanTarget(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+targetColumns+` FROM targets WHERE month = $1 AND year = $2 AND status = $3
	`, month, year, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, apperr.NotFound(targetNotFoundMsg)
	}
	if err != nil {
		return Target{}, fmt.Errorf("find target: %w", err)
	}
	return t, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Target, error) {
	t, err := scanTarget(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+targetColumns+` FROM targets WHERE id = $1 AND status = $2
	`, id, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, apperr.NotFound(targetNotFoundMsg)
	}
	if err != nil {
		return Target{}, fmt.Errorf("get target: %w", err)
	}
	return t, nil
}

// List returns the ACTIVE targets of a year ordered by month. A nil year
// returns every ACTIVE target.
func (r *Repository) List(ctx context.Context, year *int) ([]Target, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+targetColumns+` FROM targets
		WHERE status = $1 AND ($2::int IS NULL OR year = $2)
		ORDER BY year DESC, month ASC
	`, StatusActive, year)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	items := make([]Target, 0)
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate targets: %w", err)
	}
	return items, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, u TargetUpdate) (Target, error) {
	t, err := scanTarget(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE targets SET
			month = COALESCE($3, month),
			year = COALESCE($4, year),
			amount = COALESCE($5, amount),
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+targetColumns,
		id, StatusActive, u.Month, u.Year, u.Amount,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, apperr.NotFound(targetNotFoundMsg)
	}
	if err != nil {
		if db.IsUniqueViolation(err) && u.Month != nil && u.Year != nil {
			return Target{}, r.conflict(ctx, *u.Month, *u.Year)
		}
		if db.IsUniqueViolation(err) {
			return Target{}, apperr.Conflict(targetExistsMsg)
		}
		return Target{}, fmt.Errorf("update target: %w", err)
	}
	return t, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE targets SET status = $2, updated_at = now() WHERE id = $1 AND status = $3
	`, id, StatusDeleted, StatusActive)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(targetNotFoundMsg)
	}
	return nil
}

func (r *Repository) conflict(ctx context.Context, month, year int) error {
	existing, err := r.FindActive(ctx, month, year)
	if err != nil {
		return apperr.Conflict(targetExistsMsg)
	}
	return apperr.Conflict(targetExistsMsg).WithDetails(existing)
}
