package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	"github.com/JesseCorbett/minawan-maker/internal/domain/submission"
	"github.com/JesseCorbett/minawan-maker/internal/repo/postgres"
)

// ErrObjectNotFound is returned by ObjectStore reads for keys with no object
// behind them.
var ErrObjectNotFound = errors.New("object not found")

// Entry is one published catalog row. Variant URLs are emitted whether or not
// the variant object exists; the catalog is a naming contract, not a storage
// inventory.
type Entry struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Approved    bool   `json:"approved"`
	OriginalURL string `json:"originalUrl"`
	Avif256     string `json:"avif256"`
	Png256      string `json:"png256"`
	Avif512     string `json:"avif512"`
	Png512      string `json:"png512"`
	Avif64      string `json:"avif64"`
	Png64       string `json:"png64"`
	Backfill    bool   `json:"backfill,omitempty"`
}

// legacyEntry is the pre-approval projection still served to old frontends
// for communities flagged with the legacy gallery.
type legacyEntry struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	OriginalURL string `json:"originalUrl"`
	Avif256     string `json:"avif256"`
	Png256      string `json:"png256"`
	Avif512     string `json:"avif512"`
	Png512      string `json:"png512"`
	Avif64      string `json:"avif64"`
	Png64       string `json:"png64"`
	Backfill    bool   `json:"backfill,omitempty"`
}

type ObjectStore interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	IsPublic(ctx context.Context, key string) (bool, error)
	MakePublic(ctx context.Context, key string) error
	WriteJSON(ctx context.Context, key string, data []byte) error
	ReadJSON(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
}

type ProfileStore interface {
	Get(ctx context.Context, userID string) (postgres.ProfileRecord, error)
}

type ApprovalStore interface {
	Members(ctx context.Context, comm community.Community) ([]string, error)
}

// Service rebuilds the published catalog documents from storage contents,
// profile data, and the approval sets.
type Service struct {
	objects   ObjectStore
	profiles  ProfileStore
	approvals ApprovalStore
	log       *zap.Logger
}

func NewService(objects ObjectStore, profiles ProfileStore, approvals ApprovalStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		objects:   objects,
		profiles:  profiles,
		approvals: approvals,
		log:       log,
	}
}

// Rebuild recomputes {community}/catalog.json from scratch and refreshes the
// root aggregate document. It is idempotent: without state changes in
// between, two runs publish byte-identical documents.
func (s *Service) Rebuild(ctx context.Context, comm community.Community) error {
	members, err := s.approvals.Members(ctx, comm)
	if err != nil {
		return fmt.Errorf("load approval set: %w", err)
	}
	approved := make(map[string]bool, len(members))
	for _, userID := range members {
		approved[userID] = true
	}

	keys, err := s.objects.ListKeys(ctx, comm.String()+"/")
	if err != nil {
		return fmt.Errorf("list community objects: %w", err)
	}

	entries := make([]Entry, 0)
	for _, key := range keys {
		path, err := submission.ParsePath(key)
		if err != nil || path.Community != comm || !submission.IsOriginal(path.FileName) {
			continue
		}

		entry, err := s.buildEntry(ctx, path, approved[path.UserID])
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	entries = appendBackfill(comm, entries, s.objects.PublicURL)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.objects.WriteJSON(ctx, comm.String()+"/catalog.json", data); err != nil {
		return fmt.Errorf("write community catalog: %w", err)
	}

	if comm.LegacyGallery() {
		if err := s.writeLegacyGallery(ctx, comm, entries); err != nil {
			return err
		}
	}

	return s.rebuildAggregate(ctx)
}

func (s *Service) buildEntry(ctx context.Context, path submission.Path, isApproved bool) (Entry, error) {
	var displayName string
	profile, err := s.profiles.Get(ctx, path.UserID)
	switch {
	case err == nil:
		displayName = profile.DisplayName
	case errors.Is(err, postgres.ErrProfileNotFound):
		// Unlinked upload, the entry ships without a display name.
	default:
		return Entry{}, fmt.Errorf("load profile %s: %w", path.UserID, err)
	}

	// Lazy migration for objects uploaded before public-on-write. Variants are
	// produced alongside the original and share its visibility.
	isPublic, err := s.objects.IsPublic(ctx, path.ObjectKey())
	if err != nil {
		return Entry{}, fmt.Errorf("check visibility of %s: %w", path.ObjectKey(), err)
	}
	if !isPublic {
		if err := s.objects.MakePublic(ctx, path.ObjectKey()); err != nil {
			return Entry{}, fmt.Errorf("publish %s: %w", path.ObjectKey(), err)
		}
	}

	return Entry{
		ID:          path.UserID,
		DisplayName: displayName,
		Approved:    isApproved,
		OriginalURL: s.objects.PublicURL(path.ObjectKey()),
		Avif256:     s.objects.PublicURL(path.VariantKey("original_256x256.avif")),
		Png256:      s.objects.PublicURL(path.VariantKey("original_256x256.png")),
		Avif512:     s.objects.PublicURL(path.VariantKey("original_512x512.avif")),
		Png512:      s.objects.PublicURL(path.VariantKey("original_512x512.png")),
		Avif64:      s.objects.PublicURL(path.VariantKey("original_64x64.avif")),
		Png64:       s.objects.PublicURL(path.VariantKey("original_64x64.png")),
	}, nil
}

func (s *Service) writeLegacyGallery(ctx context.Context, comm community.Community, entries []Entry) error {
	legacy := make([]legacyEntry, 0, len(entries))
	for _, entry := range entries {
		legacy = append(legacy, legacyEntry{
			ID:          entry.ID,
			DisplayName: entry.DisplayName,
			OriginalURL: entry.OriginalURL,
			Avif256:     entry.Avif256,
			Png256:      entry.Png256,
			Avif512:     entry.Avif512,
			Png512:      entry.Png512,
			Avif64:      entry.Avif64,
			Png64:       entry.Png64,
			Backfill:    entry.Backfill,
		})
	}

	data, err := json.Marshal(legacy)
	if err != nil {
		return fmt.Errorf("encode legacy gallery: %w", err)
	}
	if err := s.objects.WriteJSON(ctx, comm.String()+"/gallery.json", data); err != nil {
		return fmt.Errorf("write legacy gallery: %w", err)
	}

	return nil
}

// rebuildAggregate reads back every community's catalog and republishes the
// root document keyed by public channel alias. Communities without a catalog
// yet are simply absent from the aggregate.
func (s *Service) rebuildAggregate(ctx context.Context) error {
	combined := make(map[string]json.RawMessage)
	for _, comm := range community.All() {
		data, err := s.objects.ReadJSON(ctx, comm.String()+"/catalog.json")
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				continue
			}
			s.log.Warn("skipping community in aggregate catalog",
				zap.String("community", comm.String()),
				zap.Error(err))
			continue
		}
		combined[comm.Alias()] = json.RawMessage(data)
	}

	data, err := json.Marshal(combined)
	if err != nil {
		return fmt.Errorf("encode aggregate catalog: %w", err)
	}
	if err := s.objects.WriteJSON(ctx, "catalog.json", data); err != nil {
		return fmt.Errorf("write aggregate catalog: %w", err)
	}

	return nil
}
