package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Ensure RequestRepository implements the interface
var _ repo.RequestRepository = (*RequestRepository)(nil)

const requestColumns = `id, title, subtitle, body, sound, attachments, user_info,
	trigger_interval_ms, trigger_repeats, status, attempts, fire_at, delivered_at, created_at, updated_at`

const (
	createRequestQuery = `INSERT INTO notification_requests (
	id, title, subtitle, body, sound, attachments, user_info,
	trigger_interval_ms, trigger_repeats, status, attempts, fire_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + requestColumns

	getRequestByIDQuery = `SELECT ` + requestColumns + ` FROM notification_requests WHERE id = $1`

	listPendingQuery = `SELECT ` + requestColumns + ` FROM notification_requests
WHERE status = 'scheduled'
ORDER BY created_at, id`

	listDueQuery = `SELECT ` + requestColumns + ` FROM notification_requests
WHERE status = 'scheduled' AND fire_at < $1
ORDER BY fire_at
LIMIT $2`

	updateRequestQuery = `UPDATE notification_requests
SET status = $2, attempts = $3, fire_at = $4, delivered_at = $5, updated_at = now()
WHERE id = $1 AND status = 'scheduled'`

	cancelRequestsQuery = `UPDATE notification_requests
SET status = 'cancelled', updated_at = now()
WHERE id = ANY($1) AND status = 'scheduled'
RETURNING id`
)

// RequestRepository implements the domain.repository.RequestRepository interface
// using PostgreSQL as a backend.
type RequestRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewRequestRepository creates a new instance of the RequestRepository
func NewRequestRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *RequestRepository {
	return &RequestRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_repository").Logger(),
	}
}

// Save persists a new request and returns the stored object with DB-generated fields.
func (r *RequestRepository) Save(ctx context.Context, n *model.Request) (*model.Request, error) {
	row := r.pool.QueryRow(ctx, createRequestQuery, toCreateArgs(n)...)

	created, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, repo.ErrDuplicateRecord
		}
		r.logger.Err(err).Stringer("id", n.ID).Msg("cannot create notification request")
		return nil, fmt.Errorf("postgres: CreateRequest failed: %w", err)
	}

	return created, nil
}

// GetByID retrieves a request by its unique ID.
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	row := r.pool.QueryRow(ctx, getRequestByIDQuery, pgtype.UUID{Bytes: id, Valid: true})

	n, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Stringer("id", id).Msg("notification request not found by id")
			return nil, repo.ErrNotFound
		}
		r.logger.Err(err).Str("method", "GetByID").Msg("cannot get notification request")
		return nil, fmt.Errorf("postgres: GetRequestByID failed: %w", err)
	}

	return n, nil
}

// ListPending returns every scheduled request, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]*model.Request, error) {
	rows, err := r.pool.Query(ctx, listPendingQuery)
	if err != nil {
		r.logger.Err(err).Str("method", "ListPending").Msg("cannot list pending requests")
		return nil, fmt.Errorf("postgres: ListPending failed: %w", err)
	}
	return collectRequests(rows)
}

// ListDue returns scheduled requests whose fire time is before the given instant.
func (r *RequestRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*model.Request, error) {
	rows, err := r.pool.Query(ctx, listDueQuery, pgtype.Timestamptz{Time: before, Valid: true}, limit)
	if err != nil {
		r.logger.Err(err).Str("method", "ListDue").Msg("cannot list due requests")
		return nil, fmt.Errorf("postgres: ListDue failed: %w", err)
	}
	return collectRequests(rows)
}

// Update updates the bookkeeping fields of a request that is still scheduled.
// A request that is missing or left the pending set yields ErrNotPending.
func (r *RequestRepository) Update(ctx context.Context, n *model.Request) error {
	tag, err := r.pool.Exec(ctx, updateRequestQuery, toUpdateArgs(n)...)
	if err != nil {
		r.logger.Err(err).Stringer("id", n.ID).Msg("cannot update notification request")
		return fmt.Errorf("postgres: UpdateRequest failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Stringer("id", n.ID).Msg("notification request is missing or no longer scheduled")
		return repo.ErrNotPending
	}
	return nil
}

// Cancel performs a "soft delete": pending requests are marked 'cancelled'.
func (r *RequestRepository) Cancel(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	pgIDs := make([]pgtype.UUID, len(ids))
	for i, id := range ids {
		pgIDs[i] = pgtype.UUID{Bytes: id, Valid: true}
	}

	rows, err := r.pool.Query(ctx, cancelRequestsQuery, pgIDs)
	if err != nil {
		r.logger.Err(err).Int("count", len(ids)).Msg("cannot cancel notification requests")
		return nil, fmt.Errorf("postgres: CancelRequests failed: %w", err)
	}

	cancelled, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id pgtype.UUID
		if err := row.Scan(&id); err != nil {
			return uuid.Nil, err
		}
		return id.Bytes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: CancelRequests scan failed: %w", err)
	}
	return cancelled, nil
}

// === Mapper Functions ===

func toCreateArgs(n *model.Request) []any {
	attachments := n.Content.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	userInfo := n.Content.UserInfo
	if userInfo == nil {
		userInfo = map[string]string{}
	}
	return []any{
		pgtype.UUID{Bytes: n.ID, Valid: true},
		n.Content.Title,
		n.Content.Subtitle,
		n.Content.Body,
		n.Content.Sound,
		attachments,
		userInfo,
		n.Trigger.Interval.Milliseconds(),
		n.Trigger.Repeats,
		string(n.Status),
		int16(n.Attempts),
		pgtype.Timestamptz{Time: n.FireAt, Valid: true},
	}
}

func toUpdateArgs(n *model.Request) []any {
	deliveredAt := pgtype.Timestamptz{Valid: false}
	if n.DeliveredAt != nil {
		deliveredAt = pgtype.Timestamptz{Time: *n.DeliveredAt, Valid: true}
	}
	return []any{
		pgtype.UUID{Bytes: n.ID, Valid: true},
		string(n.Status),
		int16(n.Attempts),
		pgtype.Timestamptz{Time: n.FireAt, Valid: true},
		deliveredAt,
	}
}

func collectRequests(rows pgx.Rows) ([]*model.Request, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Request, error) {
		return scanRequest(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan requests: %w", err)
	}
	return out, nil
}

// scanRequest converts a database row to a domain model.
func scanRequest(row pgx.Row) (*model.Request, error) {
	var (
		id          pgtype.UUID
		n           model.Request
		intervalMS  int64
		status      string
		attempts    int16
		fireAt      pgtype.Timestamptz
		deliveredAt pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(
		&id,
		&n.Content.Title,
		&n.Content.Subtitle,
		&n.Content.Body,
		&n.Content.Sound,
		&n.Content.Attachments,
		&n.Content.UserInfo,
		&intervalMS,
		&n.Trigger.Repeats,
		&status,
		&attempts,
		&fireAt,
		&deliveredAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ID = id.Bytes
	n.Trigger.Interval = time.Duration(intervalMS) * time.Millisecond
	n.Status = model.Status(status)
	n.Attempts = int(attempts)
	n.FireAt = fireAt.Time
	n.CreatedAt = createdAt.Time
	n.UpdatedAt = updatedAt.Time
	if deliveredAt.Valid {
		n.DeliveredAt = &deliveredAt.Time
	}
	return &n, nil
}
