package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

// ErrRecordNotFound covers both keys that never existed and keys already
// invalidated; callers must not be able to tell the two apart.
var ErrRecordNotFound = errors.New("review record not found")

// Record is one outstanding (submission, notification target) pair. Its ID
// doubles as the bearer capability key for approve/delete actions: holding
// the ID is the entire proof of authorization.
type Record struct {
	ID            string
	UserID        string
	Community     community.Community
	WebhookTarget string
	ImagePath     string
	MessageID     string
}

type Store interface {
	Insert(ctx context.Context, record Record) error
	SetMessageID(ctx context.Context, id, messageID string) error
	ListByUser(ctx context.Context, userID string, comm community.Community) ([]Record, error)
	GetByKey(ctx context.Context, userID string, comm community.Community, key string) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Service owns the review record lifecycle and the capability-key scheme
// built on it. Swapping the existence-lookup keys for signed tokens later
// only means replacing this implementation.
type Service struct {
	store Store
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		newID: uuid.NewString,
	}
}

func (s *Service) Create(ctx context.Context, userID string, comm community.Community, webhookTarget, imagePath string) (Record, error) {
	if s.store == nil {
		return Record{}, fmt.Errorf("review store is not configured")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(webhookTarget) == "" || strings.TrimSpace(imagePath) == "" {
		return Record{}, fmt.Errorf("invalid review record payload")
	}

	record := Record{
		ID:            s.newID(),
		UserID:        userID,
		Community:     comm,
		WebhookTarget: webhookTarget,
		ImagePath:     imagePath,
	}

	if err := s.store.Insert(ctx, record); err != nil {
		return Record{}, fmt.Errorf("create review record: %w", err)
	}

	return record, nil
}

// AttachMessageID persists the gateway-assigned message id. Until this has
// run the record cannot drive a later message update or retraction.
func (s *Service) AttachMessageID(ctx context.Context, record Record, messageID string) error {
	if s.store == nil {
		return fmt.Errorf("review store is not configured")
	}
	if record.ID == "" || strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("invalid message id payload")
	}

	if err := s.store.SetMessageID(ctx, record.ID, messageID); err != nil {
		return fmt.Errorf("attach message id: %w", err)
	}

	return nil
}

func (s *Service) List(ctx context.Context, userID string, comm community.Community) ([]Record, error) {
	if s.store == nil {
		return nil, fmt.Errorf("review store is not configured")
	}

	records, err := s.store.ListByUser(ctx, userID, comm)
	if err != nil {
		return nil, fmt.Errorf("list review records: %w", err)
	}

	return records, nil
}

// Invalidate deletes the record, revoking its key. Must run before the same
// submission slot is reused for a newer upload.
func (s *Service) Invalidate(ctx context.Context, record Record) error {
	if s.store == nil {
		return fmt.Errorf("review store is not configured")
	}
	if record.ID == "" {
		return fmt.Errorf("review record id is required")
	}

	if err := s.store.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("invalidate review record: %w", err)
	}

	return nil
}

// Authorize resolves a capability key. Existence of the record is the sole
// proof; a miss reports ErrRecordNotFound regardless of why the key is gone.
func (s *Service) Authorize(ctx context.Context, userID string, comm community.Community, key string) (Record, error) {
	if s.store == nil {
		return Record{}, fmt.Errorf("review store is not configured")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(key) == "" {
		return Record{}, ErrRecordNotFound
	}

	record, err := s.store.GetByKey(ctx, userID, comm, key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("authorize review key: %w", err)
	}

	return record, nil
}
