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

const inquiryNotFoundMsg = "international inquiry not found"

const (
	StatusPending  = "PENDING"
	StatusConfirm  = "CONFIRM"
	StatusLost     = "LOST"
	StatusArchived = "ARCHIVED"
)

type Inquiry struct {
	ID            uuid.UUID
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Company       string
	Country       string
	EventName     string
	StartDatetime *time.Time
	EndDatetime   *time.Time
	Pax           int
	Notes         string
	SalespersonID *uuid.UUID
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InquiryUpdate struct {
	ContactName   *string
	ContactPhone  *string
	Company       *string
	Country       *string
	EventName     *string
	StartDatetime *time.Time
	EndDatetime   *time.Time
	Pax           *int
	Notes         *string
	SalespersonID *uuid.UUID
}

type ListParams struct {
	Status   string
	Country  string
	Search   string
	Page     int
	PageSize int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inquiryColumns = `id, contact_name, contact_email, contact_phone, company, country, event_name,
	start_datetime, end_datetime, pax, notes, salesperson_id, status, created_at, updated_at`

func scanInquiry(row pgx.Row) (Inquiry, error) {
	var i Inquiry
	err := row.Scan(&i.ID, &i.ContactName, &i.ContactEmail, &i.ContactPhone, &i.Company, &i.Country,
		&i.EventName, &i.StartDatetime, &i.EndDatetime, &i.Pax, &i.Notes, &i.SalespersonID, &i.Status,
		&i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (r *Repository) Create(ctx context.Context, i Inquiry) (Inquiry, error) {
	created, err := scanInquiry(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO international_inquiries (contact_name, contact_email, contact_phone, company, country,
			event_name, start_datetime, end_datetime, pax, notes, salesperson_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+inquiryColumns,
		i.ContactName, i.ContactEmail, i.ContactPhone, i.Company, i.Country, i.EventName,
		i.StartDatetime, i.EndDatetime, i.Pax, i.Notes, i.SalespersonID,
	))
	if err != nil {
		return Inquiry{}, fmt.Errorf("insert international inquiry: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Inquiry, error) {
	i, err := scanInquiry(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+inquiryColumns+` FROM international_inquiries WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, apperr.NotFound(inquiryNotFoundMsg)
	}
	if err != nil {
		return Inquiry{}, fmt.Errorf("get international inquiry: %w", err)
	}
	return i, nil
}

// List hides ARCHIVED rows unless that status is asked for.
func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Inquiry], error) {
	baseQuery := `
		FROM international_inquiries
		WHERE (($1::text IS NULL AND status <> 'ARCHIVED') OR status = $1)
			AND ($2::text IS NULL OR country ILIKE $2)
			AND ($3::text IS NULL OR contact_name ILIKE $3 OR contact_email ILIKE $3
				OR company ILIKE $3 OR event_name ILIKE $3)
	`
	args := []interface{}{nullable(params.Status), nullable(params.Country), paging.Search(params.Search)}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return paging.Page[Inquiry]{}, fmt.Errorf("count international inquiries: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		"SELECT "+inquiryColumns+baseQuery+" ORDER BY created_at DESC LIMIT $4 OFFSET $5",
		append(args, pageSize, offset)...,
	)
	if err != nil {
		return paging.Page[Inquiry]{}, fmt.Errorf("list international inquiries: %w", err)
	}
	defer rows.Close()

	items := make([]Inquiry, 0)
	for rows.Next() {
		i, err := scanInquiry(rows)
		if err != nil {
			return paging.Page[Inquiry]{}, fmt.Errorf("scan international inquiry: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Inquiry]{}, fmt.Errorf("iterate international inquiries: %w", err)
	}
	return paging.New(items, total, page, pageSize), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, u InquiryUpdate) (Inquiry, error) {
	i, err := scanInquiry(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE international_inquiries SET
			contact_name = COALESCE($3, contact_name),
			contact_phone = COALESCE($4, contact_phone),
			company = COALESCE($5, company),
			country = COALESCE($6, country),
			event_name = COALESCE($7, event_name),
			start_datetime = COALESCE($8, start_datetime),
			end_datetime = COALESCE($9, end_datetime),
			pax = COALESCE($10, pax),
			notes = COALESCE($11, notes),
			salesperson_id = COALESCE($12, salesperson_id),
			updated_at = now()
		WHERE id = $1 AND status <> $2
		RETURNING `+inquiryColumns,
		id, StatusArchived, u.ContactName, u.ContactPhone, u.Company, u.Country, u.EventName,
		u.StartDatetime, u.EndDatetime, u.Pax, u.Notes, u.SalespersonID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, apperr.NotFound(inquiryNotFoundMsg)
	}
	if err != nil {
		return Inquiry{}, fmt.Errorf("update international inquiry: %w", err)
	}
	return i, nil
}

// SetStatus moves the row from one status to another. It reports false when
// the row was no longer in the expected status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE international_inquiries SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("set international inquiry status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
