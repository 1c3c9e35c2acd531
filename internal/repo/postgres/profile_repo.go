package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo reads the per-user identity records written by the external
// identity-linking collaborator, and owns the per-community has-submission
// flag the workflow clears on resubmission.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

type ProfileRecord struct {
	UserID      string
	DisplayName string
	ProviderID  string
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (ProfileRecord, error) {
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return ProfileRecord{}, fmt.Errorf("user id is required")
	}

	record := ProfileRecord{}
	err := r.pool.QueryRow(ctx, `
SELECT user_id, display_name, provider_id
FROM profiles
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&record.UserID, &record.DisplayName, &record.ProviderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return record, nil
}

func (r *ProfileRepo) ClearSubmissionFlag(ctx context.Context, userID string, comm community.Community) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profile_flags (user_id, community, has_submission, updated_at)
VALUES ($1, $2, FALSE, NOW())
ON CONFLICT (user_id, community) DO UPDATE SET
	has_submission = FALSE,
	updated_at = NOW()
`, userID, comm.String()); err != nil {
		return fmt.Errorf("clear submission flag: %w", err)
	}

	return nil
}
