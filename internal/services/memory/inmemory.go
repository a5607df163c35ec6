package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
)

// InMemoryStorage is a MemoryStorage backend held entirely in process
// memory. Used for tests and throwaway deployments where persistence
// across restarts does not matter.
type InMemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*models.MemoryRecord
}

// NewInMemoryStorage creates an empty in-memory backend
func NewInMemoryStorage() interfaces.MemoryStorage {
	return &InMemoryStorage{
		records: make(map[string]*models.MemoryRecord),
	}
}

func (s *InMemoryStorage) SaveRecord(rec *models.MemoryRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("memory record ID is required")
	}
	if rec.UserID == "" {
		return fmt.Errorf("memory record user ID is required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	clone := *rec

	s.mu.Lock()
	s.records[rec.ID] = &clone
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStorage) RecordsByKindSince(userID, kind string, since time.Time) ([]*models.MemoryRecord, error) {
	return s.query(func(r *models.MemoryRecord) bool {
		return r.UserID == userID && r.Kind == kind && !r.Timestamp.Before(since)
	}, 0), nil
}

func (s *InMemoryStorage) RecentByKind(userID, kind string, limit int) ([]*models.MemoryRecord, error) {
	return s.query(func(r *models.MemoryRecord) bool {
		return r.UserID == userID && r.Kind == kind
	}, limit), nil
}

func (s *InMemoryStorage) AllForUser(userID string) ([]*models.MemoryRecord, error) {
	return s.query(func(r *models.MemoryRecord) bool {
		return r.UserID == userID
	}, 0), nil
}

func (s *InMemoryStorage) DeleteOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, r := range s.records {
		if r.Timestamp.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStorage) Close() error {
	s.mu.Lock()
	s.records = make(map[string]*models.MemoryRecord)
	s.mu.Unlock()
	return nil
}

// query returns matching records newest first, bounded by limit when
// limit > 0. Copies are returned so callers cannot mutate stored state.
func (s *InMemoryStorage) query(match func(*models.MemoryRecord) bool, limit int) []*models.MemoryRecord {
	s.mu.RLock()
	matched := make([]*models.MemoryRecord, 0)
	for _, r := range s.records {
		if match(r) {
			clone := *r
			matched = append(matched, &clone)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}
