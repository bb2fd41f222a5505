package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

const (
	StatusActive  = "ACTIVE"
	StatusDeleted = "DELETED"
)

type Lead struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Phone      string
	Company    string
	Source     string
	Notes      string
	Status     string
	AssignedTo *uuid.UUID
	InquiryID  *uuid.UUID
	CreatedBy  *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type LeadUpdate struct {
	Name       *string
	Phone      *string
	Company    *string
	Source     *string
	Notes      *string
	AssignedTo *uuid.UUID
}

type ListParams struct {
	AssignedTo *uuid.UUID
	Search     string
	Page       int
	PageSize   int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, name, email, phone, company, source, notes, status, assigned_to,
	inquiry_id, created_by, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Source, &l.Notes, &l.Status,
		&l.AssignedTo, &l.InquiryID, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// Create inserts an ACTIVE lead. A duplicate ACTIVE email is a Conflict
// carrying the existing lead.
func (r *Repository) Create(ctx context.Context, l Lead) (Lead, error) {
	q := db.Conn(ctx, r.pool)

	existing, err := r.findActiveByEmail(ctx, l.Email)
	if err == nil {
		return Lead{}, apperr.Conflict("lead already exists").WithDetails(existing)
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return Lead{}, err
	}

	created, err := scanLead(q.QueryRow(ctx, `
		INSERT INTO leads (name, email, phone, company, source, notes, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		l.Name, l.Email, l.Phone, l.Company, l.Source, l.Notes, l.AssignedTo, l.CreatedBy,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			existing, findErr := r.findActiveByEmail(ctx, l.Email)
			if findErr != nil {
				return Lead{}, apperr.Conflict("lead already exists")
			}
			return Lead{}, apperr.Conflict("lead already exists").WithDetails(existing)
		}
		return Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	return created, nil
}

func (r *Repository) findActiveByEmail(ctx context.Context, email string) (Lead, error) {
	l, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE lower(email) = lower($1) AND status = $2
	`, email, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("find lead by email: %w", err)
	}
	return l, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	l, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// GetActiveForUpdate locks an ACTIVE lead for conversion.
func (r *Repository) GetActiveForUpdate(ctx context.Context, id uuid.UUID) (Lead, error) {
	l, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 AND status = $2 FOR UPDATE
	`, id, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("lock lead: %w", err)
	}
	return l, nil
}

// List returns ACTIVE leads, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Lead], error) {
	baseQuery := `
		FROM leads
		WHERE status = $1
			AND ($2::uuid IS NULL OR assigned_to = $2)
			AND ($3::text IS NULL OR name ILIKE $3 OR email ILIKE $3 OR company ILIKE $3)
	`
	args := []interface{}{StatusActive, params.AssignedTo, paging.Search(params.Search)}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return paging.Page[Lead]{}, fmt.Errorf("count leads: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		"SELECT "+leadColumns+baseQuery+" ORDER BY created_at DESC LIMIT $4 OFFSET $5",
		append(args, pageSize, offset)...,
	)
	if err != nil {
		return paging.Page[Lead]{}, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return paging.Page[Lead]{}, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Lead]{}, fmt.Errorf("iterate leads: %w", err)
	}
	return paging.New(items, total, page, pageSize), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, u LeadUpdate) (Lead, error) {
	l, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE leads SET
			name = COALESCE($3, name),
			phone = COALESCE($4, phone),
			company = COALESCE($5, company),
			source = COALESCE($6, source),
			notes = COALESCE($7, notes),
			assigned_to = COALESCE($8, assigned_to),
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+leadColumns,
		id, StatusActive, u.Name, u.Phone, u.Company, u.Source, u.Notes, u.AssignedTo,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return l, nil
}

// SoftDelete marks the lead DELETED, optionally linking the inquiry it became.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, inquiryID *uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE leads SET status = $2, inquiry_id = COALESCE($3, inquiry_id), updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, StatusDeleted, inquiryID, StatusActive)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}
