package review

import (
	"context"
	"errors"
	"testing"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

type fakeStore struct {
	records map[string]Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}}
}

func (f *fakeStore) Insert(_ context.Context, record Record) error {
	f.records[record.ID] = record
	return nil
}

func (f *fakeStore) SetMessageID(_ context.Context, id, messageID string) error {
	record, ok := f.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	record.MessageID = messageID
	f.records[id] = record
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string, comm community.Community) ([]Record, error) {
	var out []Record
	for _, record := range f.records {
		if record.UserID == userID && record.Community == comm {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByKey(_ context.Context, userID string, comm community.Community, key string) (Record, error) {
	record, ok := f.records[key]
	if !ok || record.UserID != userID || record.Community != comm {
		return Record{}, ErrRecordNotFound
	}
	return record, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.records, id)
	return nil
}

func TestCreateAllocatesDistinctKeys(t *testing.T) {
	svc := NewService(newFakeStore())

	first, err := svc.Create(context.Background(), "u1", community.Minawan, "https://hooks.test/a", "minawan/u1/original.png")
	if err != nil {
		t.Fatalf("create first record: %v", err)
	}
	second, err := svc.Create(context.Background(), "u1", community.Minawan, "https://hooks.test/b", "minawan/u1/original.png")
	if err != nil {
		t.Fatalf("create second record: %v", err)
	}

	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct non-empty keys, got %q and %q", first.ID, second.ID)
	}
}

func TestAuthorizeMatchesExactRecordOnly(t *testing.T) {
	svc := NewService(newFakeStore())

	record, err := svc.Create(context.Background(), "u1", community.Minawan, "https://hooks.test/a", "minawan/u1/original.png")
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	got, err := svc.Authorize(context.Background(), "u1", community.Minawan, record.ID)
	if err != nil {
		t.Fatalf("authorize with valid key: %v", err)
	}
	if got.ID != record.ID {
		t.Fatalf("unexpected record: got %s want %s", got.ID, record.ID)
	}

	if _, err := svc.Authorize(context.Background(), "u2", community.Minawan, record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for wrong user, got %v", err)
	}
	if _, err := svc.Authorize(context.Background(), "u1", community.Goomer, record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for wrong community, got %v", err)
	}
	if _, err := svc.Authorize(context.Background(), "u1", community.Minawan, "unknown"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for unknown key, got %v", err)
	}
}

func TestInvalidateRevokesKey(t *testing.T) {
	svc := NewService(newFakeStore())

	record, err := svc.Create(context.Background(), "u1", community.Minawan, "https://hooks.test/a", "minawan/u1/original.png")
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	if err := svc.Invalidate(context.Background(), record); err != nil {
		t.Fatalf("invalidate record: %v", err)
	}

	if _, err := svc.Authorize(context.Background(), "u1", community.Minawan, record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected revoked key to fail authorization, got %v", err)
	}
}

func TestAttachMessageID(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	record, err := svc.Create(context.Background(), "u1", community.Wormpal, "https://hooks.test/a", "wormpal/u1/original.png")
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	if err := svc.AttachMessageID(context.Background(), record, "msg-42"); err != nil {
		t.Fatalf("attach message id: %v", err)
	}

	records, err := svc.List(context.Background(), "u1", community.Wormpal)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 || records[0].MessageID != "msg-42" {
		t.Fatalf("expected persisted message id, got %+v", records)
	}

	if err := svc.AttachMessageID(context.Background(), record, ""); err == nil {
		t.Fatalf("expected error for empty message id")
	}
}
