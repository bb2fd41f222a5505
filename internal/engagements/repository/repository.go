package repository

import (
	"context"
	"encoding/json"
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

const eventNotFoundMsg = "event not found"

const (
	StatusActive    = "ACTIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"

	SoftwarePending  = "PENDING"
	SoftwareArchived = "ARCHIVED"
)

// Logistics is the free-form operational plan of an event.
type Logistics struct {
	LoadIn    *time.Time `json:"load_in,omitempty"`
	LoadOut   *time.Time `json:"load_out,omitempty"`
	Crew      []string   `json:"crew,omitempty"`
	Equipment []string   `json:"equipment,omitempty"`
	Software  string     `json:"software,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type Event struct {
	ID             uuid.UUID
	InquiryID      uuid.UUID
	ClientID       *uuid.UUID
	Name           string
	Venue          string
	Pax            int
	StartDatetime  time.Time
	EndDatetime    time.Time
	Logistics      Logistics
	Status         string
	SoftwareStatus string
	PortalCode     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventUpdate struct {
	Name      *string
	Venue     *string
	Pax       *int
	Logistics *Logistics
}

type ListParams struct {
	Status         string
	SoftwareStatus string
	From           *time.Time
	To             *time.Time
	Search         string
	Page           int
	PageSize       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `e.id, e.inquiry_id, e.client_id, e.name, e.venue, e.pax, e.start_datetime, e.end_datetime,
	e.logistics, e.status, e.software_status, pe.event_code, e.created_at, e.updated_at`

const eventFrom = ` FROM events e LEFT JOIN portal_events pe ON pe.event_id = e.id `

func scanEvent(row pgx.Row) (Event, error) {
	var (
		e         Event
		logistics []byte
	)
	err := row.Scan(&e.ID, &e.InquiryID, &e.ClientID, &e.Name, &e.Venue, &e.Pax, &e.StartDatetime, &e.EndDatetime,
		&logistics, &e.Status, &e.SoftwareStatus, &e.PortalCode, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Event{}, err
	}
	if err := json.Unmarshal(logistics, &e.Logistics); err != nil {
		return Event{}, fmt.Errorf("decode logistics: %w", err)
	}
	return e, nil
}

// UpsertForInquiry inserts the event of an inquiry or refreshes the existing
// one. inserted is true only for a new row.
func (r *Repository) UpsertForInquiry(ctx context.Context, e Event) (uuid.UUID, bool, error) {
	var (
		id       uuid.UUID
		inserted bool
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO events (inquiry_id, client_id, name, venue, pax, start_datetime, end_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (inquiry_id) DO UPDATE SET
			client_id = COALESCE(EXCLUDED.client_id, events.client_id),
			name = EXCLUDED.name,
			venue = EXCLUDED.venue,
			pax = EXCLUDED.pax,
			start_datetime = EXCLUDED.start_datetime,
			end_datetime = EXCLUDED.end_datetime,
			status = CASE WHEN events.status = 'CANCELLED' THEN 'ACTIVE' ELSE events.status END,
			updated_at = now()
		RETURNING id, (xmax = 0)
	`, e.InquiryID, e.ClientID, e.Name, e.Venue, e.Pax, e.StartDatetime, e.EndDatetime).Scan(&id, &inserted)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert event: %w", err)
	}
	return id, inserted, nil
}

// UpdateWindowByInquiry moves the event of an inquiry. No row is not an error.
func (r *Repository) UpdateWindowByInquiry(ctx context.Context, inquiryID uuid.UUID, start, end time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE events SET start_datetime = $2, end_datetime = $3, updated_at = now()
		WHERE inquiry_id = $1
	`, inquiryID, start, end)
	if err != nil {
		return fmt.Errorf("update event window: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+eventFrom+`WHERE e.id = $1`, id)
}

func (r *Repository) GetByInquiry(ctx context.Context, inquiryID uuid.UUID) (Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+eventFrom+`WHERE e.inquiry_id = $1`, inquiryID)
}

func (r *Repository) get(ctx context.Context, sql string, arg uuid.UUID) (Event, error) {
	e, err := scanEvent(db.Conn(ctx, r.pool).QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, apperr.NotFound(eventNotFoundMsg)
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Event], error) {
	var status, software interface{}
	if params.Status != "" {
		status = params.Status
	}
	if params.SoftwareStatus != "" {
		software = params.SoftwareStatus
	}

	where := `
		WHERE ($1::text IS NULL OR e.status = $1)
			AND ($2::text IS NULL OR e.software_status = $2)
			AND ($3::timestamptz IS NULL OR e.start_datetime >= $3)
			AND ($4::timestamptz IS NULL OR e.start_datetime < $4)
			AND ($5::text IS NULL OR e.name ILIKE $5 OR e.venue ILIKE $5 OR pe.event_code ILIKE $5)
	`
	args := []interface{}{status, software, params.From, params.To, paging.Search(params.Search)}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT COUNT(*)"+eventFrom+where, args...).Scan(&total); err != nil {
		return paging.Page[Event]{}, fmt.Errorf("count events: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		"SELECT "+eventColumns+eventFrom+where+" ORDER BY e.start_datetime ASC LIMIT $6 OFFSET $7",
		append(args, pageSize, offset)...,
	)
	if err != nil {
		return paging.Page[Event]{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return paging.Page[Event]{}, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Event]{}, fmt.Errorf("iterate events: %w", err)
	}
	return paging.New(items, total, page, pageSize), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, u EventUpdate) error {
	var logistics []byte
	if u.Logistics != nil {
		encoded, err := json.Marshal(u.Logistics)
		if err != nil {
			return fmt.Errorf("encode logistics: %w", err)
		}
		logistics = encoded
	}

	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE events SET
			name = COALESCE($2, name),
			venue = COALESCE($3, venue),
			pax = COALESCE($4, pax),
			logistics = COALESCE($5::jsonb, logistics),
			updated_at = now()
		WHERE id = $1
	`, id, u.Name, u.Venue, u.Pax, logistics)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(eventNotFoundMsg)
	}
	return nil
}

// SetStatus moves an event whose status is from. It reports whether a row changed.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE events SET status = $3, updated_at = now() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("set event status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SetSoftwareStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE events SET software_status = $3, updated_at = now() WHERE id = $1 AND software_status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("set event software status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertPortalCode links the event to its reporting portal code.
func (r *Repository) UpsertPortalCode(ctx context.Context, eventID uuid.UUID, code string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO portal_events (event_id, event_code) VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET event_code = EXCLUDED.event_code, updated_at = now()
	`, eventID, code)
	if err != nil {
		return fmt.Errorf("upsert portal event: %w", err)
	}
	return nil
}
