package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	reviewsvc "github.com/JesseCorbett/minawan-maker/internal/services/review"
)

// ReviewRepo persists review records. The record id is the capability key,
// so lookups always pin user and community alongside it.
type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

func (r *ReviewRepo) Insert(ctx context.Context, record reviewsvc.Record) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if record.ID == "" || record.UserID == "" {
		return fmt.Errorf("invalid review record payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO review_records (id, user_id, community, webhook_target, image_path, message_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, record.ID, record.UserID, record.Community.String(), record.WebhookTarget, record.ImagePath, record.MessageID); err != nil {
		return fmt.Errorf("insert review record: %w", err)
	}

	return nil
}

func (r *ReviewRepo) SetMessageID(ctx context.Context, id, messageID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("invalid message id payload")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE review_records
SET message_id = $2
WHERE id = $1
`, id, messageID)
	if err != nil {
		return fmt.Errorf("set review message id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reviewsvc.ErrRecordNotFound
	}

	return nil
}

func (r *ReviewRepo) ListByUser(ctx context.Context, userID string, comm community.Community) ([]reviewsvc.Record, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, community, webhook_target, image_path, message_id
FROM review_records
WHERE user_id = $1 AND community = $2
ORDER BY created_at ASC, id ASC
`, userID, comm.String())
	if err != nil {
		return nil, fmt.Errorf("list review records: %w", err)
	}
	defer rows.Close()

	var records []reviewsvc.Record
	for rows.Next() {
		record, err := scanReviewRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review records: %w", err)
	}

	return records, nil
}

func (r *ReviewRepo) GetByKey(ctx context.Context, userID string, comm community.Community, key string) (reviewsvc.Record, error) {
	if r.pool == nil {
		return reviewsvc.Record{}, fmt.Errorf("postgres pool is nil")
	}
	// The id column is UUID-typed; a malformed key must read as a miss, not
	// as a query error.
	if _, err := uuid.Parse(key); err != nil {
		return reviewsvc.Record{}, reviewsvc.ErrRecordNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, community, webhook_target, image_path, message_id
FROM review_records
WHERE id = $3 AND user_id = $1 AND community = $2
LIMIT 1
`, userID, comm.String(), key)

	record, err := scanReviewRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reviewsvc.Record{}, reviewsvc.ErrRecordNotFound
		}
		return reviewsvc.Record{}, err
	}

	return record, nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("review record id is required")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM review_records
WHERE id = $1
`, id); err != nil {
		return fmt.Errorf("delete review record: %w", err)
	}

	return nil
}

func scanReviewRecord(row pgx.Row) (reviewsvc.Record, error) {
	record := reviewsvc.Record{}
	var comm string
	if err := row.Scan(&record.ID, &record.UserID, &comm, &record.WebhookTarget, &record.ImagePath, &record.MessageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reviewsvc.Record{}, pgx.ErrNoRows
		}
		return reviewsvc.Record{}, fmt.Errorf("scan review record: %w", err)
	}
	record.Community = community.Community(comm)
	return record, nil
}
