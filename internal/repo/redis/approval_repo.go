package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

const approvalPrefix = "approvals:"

// ApprovalRepo stores the per-community approval set as a single Redis set.
// Membership means the user's current submission has been explicitly
// approved and not since superseded or removed.
type ApprovalRepo struct {
	client *goredis.Client
}

func NewApprovalRepo(client *goredis.Client) *ApprovalRepo {
	return &ApprovalRepo{client: client}
}

func (r *ApprovalRepo) Add(ctx context.Context, comm community.Community, userID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	if err := r.client.SAdd(ctx, approvalKey(comm), userID).Err(); err != nil {
		return fmt.Errorf("add approval member: %w", err)
	}

	return nil
}

func (r *ApprovalRepo) Remove(ctx context.Context, comm community.Community, userID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	if err := r.client.SRem(ctx, approvalKey(comm), userID).Err(); err != nil {
		return fmt.Errorf("remove approval member: %w", err)
	}

	return nil
}

func (r *ApprovalRepo) Members(ctx context.Context, comm community.Community) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	members, err := r.client.SMembers(ctx, approvalKey(comm)).Result()
	if err != nil {
		return nil, fmt.Errorf("list approval members: %w", err)
	}

	return members, nil
}

func (r *ApprovalRepo) Contains(ctx context.Context, comm community.Community, userID string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	ok, err := r.client.SIsMember(ctx, approvalKey(comm), userID).Result()
	if err != nil {
		return false, fmt.Errorf("check approval member: %w", err)
	}

	return ok, nil
}

func approvalKey(comm community.Community) string {
	return approvalPrefix + comm.String()
}
