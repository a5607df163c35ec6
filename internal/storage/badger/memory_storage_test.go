package badger

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docuchat/docuchat/internal/models"
)

func newTestStorage(t *testing.T) *MemoryStorage {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewMemoryStorage(db, arbor.NewLogger()).(*MemoryStorage)
}

func saveRecord(t *testing.T, s *MemoryStorage, id, userID, kind, content string, ts time.Time) {
	t.Helper()
	rec := &models.MemoryRecord{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Content:   content,
		Timestamp: ts,
	}
	if err := s.SaveRecord(rec); err != nil {
		t.Fatalf("failed to save record %s: %v", id, err)
	}
}

func TestMemoryStorage_PerUserIsolation(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	saveRecord(t, s, "mem_a1", "user-a", models.MemoryKindUserInteraction, "alpha question", now)
	saveRecord(t, s, "mem_b1", "user-b", models.MemoryKindUserInteraction, "beta question", now)

	recs, err := s.AllForUser("user-a")
	if err != nil {
		t.Fatalf("AllForUser failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record for user-a, got %d", len(recs))
	}
	if recs[0].ID != "mem_a1" {
		t.Errorf("expected mem_a1, got %s", recs[0].ID)
	}

	recent, err := s.RecentByKind("user-b", models.MemoryKindUserInteraction, 10)
	if err != nil {
		t.Fatalf("RecentByKind failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "mem_b1" {
		t.Errorf("user-b read leaked records: %+v", recent)
	}
}

func TestMemoryStorage_RecordsByKindSince(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	saveRecord(t, s, "mem_1", "user-a", models.MemoryKindDocumentChunk, "old chunk", now.Add(-48*time.Hour))
	saveRecord(t, s, "mem_2", "user-a", models.MemoryKindDocumentChunk, "recent chunk", now.Add(-time.Hour))
	saveRecord(t, s, "mem_3", "user-a", models.MemoryKindUserInteraction, "an interaction", now.Add(-time.Hour))

	recs, err := s.RecordsByKindSince("user-a", models.MemoryKindDocumentChunk, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("RecordsByKindSince failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record inside window, got %d", len(recs))
	}
	if recs[0].ID != "mem_2" {
		t.Errorf("expected mem_2, got %s", recs[0].ID)
	}
}

func TestMemoryStorage_RecentByKindOrderAndLimit(t *testing.T) {
	s := newTestStorage(t)
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"mem_1", "mem_2", "mem_3"} {
		saveRecord(t, s, id, "user-a", models.MemoryKindUserInteraction, "q", base.Add(time.Duration(i)*time.Minute))
	}

	recs, err := s.RecentByKind("user-a", models.MemoryKindUserInteraction, 2)
	if err != nil {
		t.Fatalf("RecentByKind failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "mem_3" || recs[1].ID != "mem_2" {
		t.Errorf("expected newest-first [mem_3 mem_2], got [%s %s]", recs[0].ID, recs[1].ID)
	}
}

func TestMemoryStorage_DeleteOlderThan(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	saveRecord(t, s, "mem_old", "user-a", models.MemoryKindDocumentChunk, "stale", now.Add(-72*time.Hour))
	saveRecord(t, s, "mem_new", "user-a", models.MemoryKindDocumentChunk, "fresh", now)

	deleted, err := s.DeleteOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	recs, err := s.AllForUser("user-a")
	if err != nil {
		t.Fatalf("AllForUser failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "mem_new" {
		t.Errorf("expected only mem_new to survive, got %+v", recs)
	}
}
