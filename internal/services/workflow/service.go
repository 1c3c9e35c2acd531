package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	"github.com/JesseCorbett/minawan-maker/internal/domain/submission"
	"github.com/JesseCorbett/minawan-maker/internal/repo/postgres"
	"github.com/JesseCorbett/minawan-maker/internal/services/notify"
	"github.com/JesseCorbett/minawan-maker/internal/services/review"
)

// ErrUnauthorized reports a capability key that does not resolve. Deliberately
// silent on whether the key ever existed.
var ErrUnauthorized = errors.New("moderation key does not authorize")

const (
	unlinkedName = "🔴 Unlinked"
)

type ObjectStore interface {
	RemovePrefix(ctx context.Context, prefix string) error
	PublicURL(key string) string
}

type ApprovalStore interface {
	Add(ctx context.Context, comm community.Community, userID string) error
	Remove(ctx context.Context, comm community.Community, userID string) error
}

type ProfileStore interface {
	Get(ctx context.Context, userID string) (postgres.ProfileRecord, error)
	ClearSubmissionFlag(ctx context.Context, userID string, comm community.Community) error
}

type Registry interface {
	Create(ctx context.Context, userID string, comm community.Community, webhookTarget, imagePath string) (review.Record, error)
	AttachMessageID(ctx context.Context, record review.Record, messageID string) error
	List(ctx context.Context, userID string, comm community.Community) ([]review.Record, error)
	Invalidate(ctx context.Context, record review.Record) error
	Authorize(ctx context.Context, userID string, comm community.Community, key string) (review.Record, error)
}

type Notifier interface {
	Notify(ctx context.Context, target string, m notify.Message) (string, error)
	MarkApproved(ctx context.Context, target, messageID string, m notify.Message) error
	Retract(ctx context.Context, target, messageID string) error
}

type Rebuilder interface {
	Rebuild(ctx context.Context, comm community.Community) error
}

// Targets holds the webhook fan-out configuration. The fallback target is
// always notified; a community target is notified additionally iff it is
// configured and distinct.
type Targets struct {
	Fallback    string
	Communities map[community.Community]string
}

func (t Targets) For(comm community.Community) string {
	return t.Communities[comm]
}

// Service is the moderation state machine. State is derived: ApprovalSet
// membership plus outstanding review records, never a persisted status field.
type Service struct {
	objects   ObjectStore
	approvals ApprovalStore
	profiles  ProfileStore
	registry  Registry
	notifier  Notifier
	rebuilder Rebuilder
	targets   Targets
	log       *zap.Logger
}

func NewService(
	objects ObjectStore,
	approvals ApprovalStore,
	profiles ProfileStore,
	registry Registry,
	notifier Notifier,
	rebuilder Rebuilder,
	targets Targets,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		objects:   objects,
		approvals: approvals,
		profiles:  profiles,
		registry:  registry,
		notifier:  notifier,
		rebuilder: rebuilder,
		targets:   targets,
		log:       log,
	}
}

// OnSubmit reacts to a storage finalize event. Keys that are not a canonical
// original of a recognized community are ignored without error; the bucket
// holds plenty of objects that are not submissions.
func (s *Service) OnSubmit(ctx context.Context, objectKey string) error {
	path, err := submission.ParsePath(objectKey)
	if err != nil || !submission.IsOriginal(path.FileName) {
		s.log.Debug("ignoring non-submission object", zap.String("key", objectKey))
		return nil
	}

	displayName, discordID, err := s.lookupIdentity(ctx, path.UserID, unlinkedName)
	if err != nil {
		return err
	}

	if err := s.profiles.ClearSubmissionFlag(ctx, path.UserID, path.Community); err != nil {
		s.log.Warn("clear submission flag failed",
			zap.String("user_id", path.UserID),
			zap.Error(err))
	}

	// A new submission always re-enters review; prior approval never carries
	// over to the replacing image.
	if err := s.approvals.Remove(ctx, path.Community, path.UserID); err != nil {
		return fmt.Errorf("clear prior approval: %w", err)
	}

	prior, err := s.registry.List(ctx, path.UserID, path.Community)
	if err != nil {
		return err
	}
	for _, record := range prior {
		if record.WebhookTarget != "" && record.MessageID != "" {
			if err := s.notifier.Retract(ctx, record.WebhookTarget, record.MessageID); err != nil {
				s.log.Warn("retract stale review prompt failed",
					zap.String("record_id", record.ID),
					zap.Error(err))
			}
		}
		if err := s.registry.Invalidate(ctx, record); err != nil {
			return err
		}
	}

	if err := s.notifyTarget(ctx, s.targets.Fallback, path, displayName, discordID); err != nil {
		return err
	}
	if communityTarget := s.targets.For(path.Community); communityTarget != "" && communityTarget != s.targets.Fallback {
		if err := s.notifyTarget(ctx, communityTarget, path, displayName, discordID); err != nil {
			return err
		}
	}

	if err := s.rebuilder.Rebuild(ctx, path.Community); err != nil {
		return fmt.Errorf("rebuild after submission: %w", err)
	}

	return nil
}

// Approve resolves the key, records the approval, and refreshes the catalog.
// Records are not consumed: the same key keeps working until the submission
// is replaced or deleted, and every outstanding prompt is re-rendered as
// approved.
func (s *Service) Approve(ctx context.Context, userID string, comm community.Community, key string) error {
	if _, err := s.registry.Authorize(ctx, userID, comm, key); err != nil {
		if errors.Is(err, review.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	if err := s.approvals.Add(ctx, comm, userID); err != nil {
		return fmt.Errorf("record approval: %w", err)
	}

	if err := s.rebuilder.Rebuild(ctx, comm); err != nil {
		return fmt.Errorf("rebuild after approval: %w", err)
	}

	displayName, discordID, err := s.lookupIdentity(ctx, userID, fmt.Sprintf("%s user (%s)", unlinkedName, userID))
	if err != nil {
		s.log.Warn("identity lookup for approval prompts failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil
	}

	records, err := s.registry.List(ctx, userID, comm)
	if err != nil {
		s.log.Warn("listing records for approval prompts failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil
	}
	for _, record := range records {
		if record.WebhookTarget == "" || record.MessageID == "" {
			continue
		}
		m := notify.Message{
			Community:   comm,
			ImageURL:    s.objects.PublicURL(record.ImagePath),
			DisplayName: displayName,
			DiscordID:   discordID,
			UserID:      userID,
			Key:         record.ID,
		}
		if err := s.notifier.MarkApproved(ctx, record.WebhookTarget, record.MessageID, m); err != nil {
			s.log.Warn("marking review prompt approved failed",
				zap.String("record_id", record.ID),
				zap.Error(err))
		}
	}

	return nil
}

// Delete resolves the key, removes every stored object of the submission, and
// tears down the outstanding review records. Approval-set cleanup is left to
// the rebuild, which excludes the user once no original remains.
func (s *Service) Delete(ctx context.Context, userID string, comm community.Community, key string) error {
	if _, err := s.registry.Authorize(ctx, userID, comm, key); err != nil {
		if errors.Is(err, review.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	prefix := submission.Path{Community: comm, UserID: userID}.Prefix()
	if err := s.objects.RemovePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("delete submission objects: %w", err)
	}

	if err := s.rebuilder.Rebuild(ctx, comm); err != nil {
		return fmt.Errorf("rebuild after deletion: %w", err)
	}

	records, err := s.registry.List(ctx, userID, comm)
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.WebhookTarget != "" && record.MessageID != "" {
			if err := s.notifier.Retract(ctx, record.WebhookTarget, record.MessageID); err != nil {
				s.log.Warn("retract review prompt failed",
					zap.String("record_id", record.ID),
					zap.Error(err))
			}
		}
		if err := s.registry.Invalidate(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) notifyTarget(ctx context.Context, target string, path submission.Path, displayName, discordID string) error {
	record, err := s.registry.Create(ctx, path.UserID, path.Community, target, path.ObjectKey())
	if err != nil {
		return err
	}

	messageID, err := s.notifier.Notify(ctx, target, notify.Message{
		Community:   path.Community,
		ImageURL:    s.objects.PublicURL(path.ObjectKey()),
		DisplayName: displayName,
		DiscordID:   discordID,
		UserID:      path.UserID,
		Key:         record.ID,
	})
	if err != nil {
		return fmt.Errorf("notify %s review target: %w", path.Community, err)
	}

	return s.registry.AttachMessageID(ctx, record, messageID)
}

func (s *Service) lookupIdentity(ctx context.Context, userID, fallback string) (displayName, discordID string, err error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrProfileNotFound) {
			return fallback, "", nil
		}
		return "", "", fmt.Errorf("load profile %s: %w", userID, err)
	}
	return profile.DisplayName, profile.ProviderID, nil
}
