package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ims_backend/internal/campaigns/domain"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const campaignNotFoundMsg = "campaign not found"

type Campaign struct {
	ID               uuid.UUID
	Name             string
	Type             string
	Kind             string
	Status           string
	TemplateKey      *string
	Subject          string
	HTML             string
	SendOn           time.Time
	SendTo           []domain.Recipient
	SourceEntityType *string
	SourceEntityID   *uuid.UUID
	Attempts         int
	LastError        string
	SentAt           *time.Time
	CreatedBy        *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ListParams struct {
	Type     string
	Kind     string
	Status   string
	Search   string
	Page     int
	PageSize int
}

// ReportEvent is one webhook callback to persist.
type ReportEvent struct {
	CampaignID uuid.UUID
	Email      string
	Event      string
	ClickURL   *string
	DedupeKey  string
	OccurredAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const campaignColumns = `id, name, type, kind, status, template_key, subject, html, send_on, send_to,
	source_entity_type, source_entity_id, attempts, last_error, sent_at, created_by, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var (
		c      Campaign
		sendTo []byte
	)
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Kind, &c.Status, &c.TemplateKey, &c.Subject, &c.HTML, &c.SendOn,
		&sendTo, &c.SourceEntityType, &c.SourceEntityID, &c.Attempts, &c.LastError, &c.SentAt, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}
	if err := json.Unmarshal(sendTo, &c.SendTo); err != nil {
		return Campaign{}, fmt.Errorf("decode send_to: %w", err)
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c Campaign) (Campaign, error) {
	sendTo, err := json.Marshal(c.SendTo)
	if err != nil {
		return Campaign{}, fmt.Errorf("encode send_to: %w", err)
	}
	created, err := scanCampaign(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO campaigns (name, type, kind, status, template_key, subject, html, send_on, send_to,
			source_entity_type, source_entity_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
		RETURNING `+campaignColumns,
		c.Name, c.Type, c.Kind, c.Status, c.TemplateKey, c.Subject, c.HTML, c.SendOn, sendTo,
		c.SourceEntityType, c.SourceEntityID, c.CreatedBy,
	))
	if err != nil {
		return Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	c, err := scanCampaign(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, apperr.NotFound(campaignNotFoundMsg)
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Campaign], error) {
	where := `
		WHERE ($1::text IS NULL OR type = $1)
			AND ($2::text IS NULL OR kind = $2)
			AND ($3::text IS NULL OR status = $3)
			AND ($4::text IS NULL OR name ILIKE $4)
	`
	args := []interface{}{nullable(params.Type), nullable(params.Kind), nullable(params.Status), paging.Search(params.Search)}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return paging.Page[Campaign]{}, fmt.Errorf("count campaigns: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)
	items, err := r.query(ctx, "list campaigns",
		`SELECT `+campaignColumns+` FROM campaigns`+where+` ORDER BY send_on DESC LIMIT $5 OFFSET $6`,
		append(args, pageSize, offset)...)
	if err != nil {
		return paging.Page[Campaign]{}, err
	}
	return paging.New(items, total, page, pageSize), nil
}

// ListDue returns PENDING campaigns due at now, oldest first.
func (r *Repository) ListDue(ctx context.Context, now time.Time) ([]Campaign, error) {
	return r.query(ctx, "list due campaigns", `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = 'PENDING' AND send_on <= $1
		ORDER BY created_at ASC
	`, now)
}

// ClaimDue moves up to limit due campaigns to SENDING. A SENDING row whose
// claim was last touched before staleBefore is taken over; its dispatcher died
// between claim and outcome. Rows locked by a concurrent claimer are skipped.
func (r *Repository) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]Campaign, error) {
	return r.query(ctx, "claim due campaigns", `
		UPDATE campaigns SET status = 'SENDING', updated_at = now()
		WHERE id IN (
			SELECT id FROM campaigns
			WHERE send_on <= $1
			  AND (status = 'PENDING' OR (status = 'SENDING' AND updated_at < $2))
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+campaignColumns,
		now, staleBefore, limit)
}

// MarkCompleted closes a claimed or pending campaign.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE campaigns SET status = 'COMPLETED', sent_at = $2, last_error = '', updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'SENDING')
	`, id, sentAt)
	if err != nil {
		return false, fmt.Errorf("complete campaign: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed records a failed attempt. The campaign returns to PENDING until
// maxAttempts is reached, then it is CANCELLED. The resulting status is returned.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (string, error) {
	var status string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE campaigns SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'CANCELLED' ELSE 'PENDING' END,
			updated_at = now()
		WHERE id = $1
		RETURNING status
	`, id, reason, maxAttempts).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound(campaignNotFoundMsg)
	}
	if err != nil {
		return "", fmt.Errorf("fail campaign: %w", err)
	}
	return status, nil
}

// SetStatus moves a campaign whose status is one of from. It reports whether a row changed.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE campaigns SET status = $3, updated_at = now() WHERE id = $1 AND status = ANY($2::text[])
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("set campaign status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelPendingBySource cancels PENDING AUTO campaigns of kind sourced from the entity.
func (r *Repository) CancelPendingBySource(ctx context.Context, kind, sourceType string, sourceID uuid.UUID) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE campaigns SET status = 'CANCELLED', updated_at = now()
		WHERE type = 'AUTO' AND kind = $1 AND source_entity_type = $2 AND source_entity_id = $3
			AND status = 'PENDING'
	`, kind, sourceType, sourceID)
	if err != nil {
		return 0, fmt.Errorf("cancel campaigns by source: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExistsForSourceSince reports whether a non-cancelled campaign of kind was
// created for the entity at or after since.
func (r *Repository) ExistsForSourceSince(ctx context.Context, kind, sourceType string, sourceID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM campaigns
			WHERE kind = $1 AND source_entity_type = $2 AND source_entity_id = $3
				AND status <> 'CANCELLED' AND created_at >= $4
		)
	`, kind, sourceType, sourceID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check campaign for source: %w", err)
	}
	return exists, nil
}

// InsertReportEvent stores one webhook callback. It returns false when the
// dedupe key was already stored or the campaign does not exist.
func (r *Repository) InsertReportEvent(ctx context.Context, e ReportEvent) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO campaign_reports (campaign_id, email, event, click_url, dedupe_key, occurred_at)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::timestamptz
		WHERE EXISTS (SELECT 1 FROM campaigns WHERE id = $1::uuid)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, e.CampaignID, e.Email, e.Event, e.ClickURL, e.DedupeKey, e.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("insert campaign report: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListReportRows(ctx context.Context, campaignID uuid.UUID) ([]domain.ReportRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT email, event, COALESCE(click_url, '') FROM campaign_reports
		WHERE campaign_id = $1
		ORDER BY occurred_at ASC, created_at ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list campaign reports: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ReportRow, 0)
	for rows.Next() {
		var row domain.ReportRow
		if err := rows.Scan(&row.Email, &row.Event, &row.ClickURL); err != nil {
			return nil, fmt.Errorf("scan campaign report: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign reports: %w", err)
	}
	return items, nil
}

func (r *Repository) query(ctx context.Context, op, sql string, args ...interface{}) ([]Campaign, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
