package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	"github.com/JesseCorbett/minawan-maker/internal/repo/postgres"
)

type fakeObjects struct {
	keys       []string
	data       map[string][]byte
	public     map[string]bool
	madePublic []string
}

func newFakeObjects(keys ...string) *fakeObjects {
	f := &fakeObjects{
		keys:   keys,
		data:   map[string][]byte{},
		public: map[string]bool{},
	}
	for _, key := range keys {
		f.public[key] = true
	}
	return f
}

func (f *fakeObjects) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, key := range f.keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (f *fakeObjects) IsPublic(_ context.Context, key string) (bool, error) {
	return f.public[key], nil
}

func (f *fakeObjects) MakePublic(_ context.Context, key string) error {
	f.public[key] = true
	f.madePublic = append(f.madePublic, key)
	return nil
}

func (f *fakeObjects) WriteJSON(_ context.Context, key string, data []byte) error {
	f.data[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) ReadJSON(_ context.Context, key string) ([]byte, error) {
	data, ok := f.data[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.test/minawan-pics/" + key
}

type fakeProfiles struct {
	profiles map[string]postgres.ProfileRecord
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (postgres.ProfileRecord, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return postgres.ProfileRecord{}, postgres.ErrProfileNotFound
	}
	return profile, nil
}

type fakeApprovals struct {
	members map[community.Community][]string
}

func (f *fakeApprovals) Members(_ context.Context, comm community.Community) ([]string, error) {
	return f.members[comm], nil
}

func decodeEntries(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	return entries
}

func TestRebuildPublishesCommunityCatalog(t *testing.T) {
	objects := newFakeObjects(
		"goomer/u1/original.png",
		"goomer/u1/original_256x256.avif",
		"goomer/u2/original.webp",
		"goomer/u2/notes.txt",
	)
	profiles := &fakeProfiles{profiles: map[string]postgres.ProfileRecord{
		"u1": {UserID: "u1", DisplayName: "goob"},
	}}
	approvals := &fakeApprovals{members: map[community.Community][]string{
		community.Goomer: {"u1"},
	}}

	svc := NewService(objects, profiles, approvals, nil)
	if err := svc.Rebuild(context.Background(), community.Goomer); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	entries := decodeEntries(t, objects.data["goomer/catalog.json"])
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), entries)
	}

	first := entries[0]
	if first["id"] != "u1" || first["displayName"] != "goob" || first["approved"] != true {
		t.Fatalf("unexpected first entry: %v", first)
	}
	if first["originalUrl"] != "https://cdn.test/minawan-pics/goomer/u1/original.png" {
		t.Fatalf("unexpected original url: %v", first["originalUrl"])
	}
	if first["png64"] != "https://cdn.test/minawan-pics/goomer/u1/original_64x64.png" {
		t.Fatalf("variant urls must be emitted even when the object is absent: %v", first["png64"])
	}

	second := entries[1]
	if second["id"] != "u2" || second["approved"] != false {
		t.Fatalf("unexpected second entry: %v", second)
	}
	if _, ok := second["displayName"]; ok {
		t.Fatalf("unlinked user must have no display name: %v", second)
	}

	if _, ok := objects.data["goomer/gallery.json"]; ok {
		t.Fatalf("legacy gallery must only be written for legacy communities")
	}
}

func TestRebuildLazilyPublishesPrivateOriginals(t *testing.T) {
	objects := newFakeObjects(
		"minyan/u1/original.png",
		"minyan/u2/original.png",
	)
	objects.public["minyan/u1/original.png"] = false

	svc := NewService(objects, &fakeProfiles{}, &fakeApprovals{}, nil)
	if err := svc.Rebuild(context.Background(), community.Minyan); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if len(objects.madePublic) != 1 || objects.madePublic[0] != "minyan/u1/original.png" {
		t.Fatalf("expected only the private original to be published, got %v", objects.madePublic)
	}
}

func TestRebuildAppendsBackfillWithoutDuplicates(t *testing.T) {
	objects := newFakeObjects("minawan/u1/original.png")
	profiles := &fakeProfiles{profiles: map[string]postgres.ProfileRecord{
		"u1": {UserID: "u1", DisplayName: "cerberVT"},
	}}

	svc := NewService(objects, profiles, &fakeApprovals{}, nil)
	if err := svc.Rebuild(context.Background(), community.Minawan); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	entries := decodeEntries(t, objects.data["minawan/catalog.json"])

	var backfilled []string
	for _, entry := range entries {
		if entry["backfill"] == true {
			name, _ := entry["displayName"].(string)
			backfilled = append(backfilled, name)
			if _, ok := entry["id"]; ok {
				t.Fatalf("backfill entries must not carry an id: %v", entry)
			}
			if entry["approved"] != true {
				t.Fatalf("backfill entries are pre-approved: %v", entry)
			}
		}
	}

	for _, name := range backfilled {
		if name == "cerberVT" {
			t.Fatalf("live entry must suppress its backfill twin: %v", backfilled)
		}
	}
	if len(backfilled) != len(backfillSeeds[community.Minawan])-1 {
		t.Fatalf("expected all but one seed, got %v", backfilled)
	}

	if _, ok := objects.data["minawan/gallery.json"]; !ok {
		t.Fatalf("legacy gallery must be written for minawan")
	}
	var legacy []map[string]any
	if err := json.Unmarshal(objects.data["minawan/gallery.json"], &legacy); err != nil {
		t.Fatalf("decode legacy gallery: %v", err)
	}
	if len(legacy) != len(entries) {
		t.Fatalf("legacy gallery must mirror the catalog entries")
	}
	if _, ok := legacy[0]["approved"]; ok {
		t.Fatalf("legacy gallery predates the approval concept: %v", legacy[0])
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	objects := newFakeObjects(
		"minawan/u1/original.png",
		"minawan/u2/original.gif",
	)
	approvals := &fakeApprovals{members: map[community.Community][]string{
		community.Minawan: {"u2"},
	}}

	svc := NewService(objects, &fakeProfiles{}, approvals, nil)
	if err := svc.Rebuild(context.Background(), community.Minawan); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	first := append([]byte(nil), objects.data["minawan/catalog.json"]...)
	firstRoot := append([]byte(nil), objects.data["catalog.json"]...)

	if err := svc.Rebuild(context.Background(), community.Minawan); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	if !bytes.Equal(first, objects.data["minawan/catalog.json"]) {
		t.Fatalf("community catalog must be byte-identical across rebuilds")
	}
	if !bytes.Equal(firstRoot, objects.data["catalog.json"]) {
		t.Fatalf("aggregate catalog must be byte-identical across rebuilds")
	}
}

func TestAggregateKeysByAliasAndToleratesMissing(t *testing.T) {
	objects := newFakeObjects(
		"minawan/u1/original.png",
		"goomer/u2/original.png",
	)

	svc := NewService(objects, &fakeProfiles{}, &fakeApprovals{}, nil)
	if err := svc.Rebuild(context.Background(), community.Minawan); err != nil {
		t.Fatalf("rebuild minawan: %v", err)
	}
	if err := svc.Rebuild(context.Background(), community.Goomer); err != nil {
		t.Fatalf("rebuild goomer: %v", err)
	}

	var aggregate map[string]json.RawMessage
	if err := json.Unmarshal(objects.data["catalog.json"], &aggregate); err != nil {
		t.Fatalf("decode aggregate: %v", err)
	}

	if len(aggregate) != 2 {
		t.Fatalf("expected exactly two aliases, got %v", aggregate)
	}
	if _, ok := aggregate["cerbervt"]; !ok {
		t.Fatalf("minawan must publish under its alias, got %v", aggregate)
	}
	if _, ok := aggregate["gomi"]; !ok {
		t.Fatalf("goomer must publish under its alias, got %v", aggregate)
	}
}
