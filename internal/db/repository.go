package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AuditRepository) Create(ctx context.Context, entity *AuditEventEntity) (*AuditEventEntity, error) {
	query := `INSERT INTO audit_event (id, flow_id, flow, step, type, payload, created_at, scheduled_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.pool.QueryRow(ctx, query, entity.ID, entity.FlowID, entity.Flow, entity.Step, entity.Type,
		entity.Payload, entity.CreatedAt, entity.ScheduledAt).Scan(&entity.ID)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

const selectColumns = `id, flow_id, flow, step, type, payload, created_at, scheduled_at, published_at, publish_attempts, error`

func scanEntity(row pgx.Row) (*AuditEventEntity, error) {
	var e AuditEventEntity
	err := row.Scan(&e.ID, &e.FlowID, &e.Flow, &e.Step, &e.Type, &e.Payload, &e.CreatedAt,
		&e.ScheduledAt, &e.PublishedAt, &e.PublishAttempts, &e.Error)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetUnpublished locks up to limit due rows; concurrent producers skip them.
func (r *AuditRepository) GetUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]*AuditEventEntity, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_event
	          WHERE scheduled_at IS NOT NULL AND scheduled_at <= now()
	          ORDER BY created_at
	          LIMIT $1
	          FOR UPDATE SKIP LOCKED`
	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*AuditEventEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *AuditRepository) Update(ctx context.Context, tx pgx.Tx, entity *AuditEventEntity) error {
	query := `UPDATE audit_event
	          SET scheduled_at = $2, published_at = $3, publish_attempts = $4, error = $5
	          WHERE id = $1`
	_, err := tx.Exec(ctx, query, entity.ID, entity.ScheduledAt, entity.PublishedAt, entity.PublishAttempts, entity.Error)
	return err
}

func (r *AuditRepository) ListByFlowID(ctx context.Context, flowID uuid.UUID) ([]*AuditEventEntity, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_event WHERE flow_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, flowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*AuditEventEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
