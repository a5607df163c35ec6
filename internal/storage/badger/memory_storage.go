package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
)

// MemoryStorage implements the MemoryStorage interface for Badger.
// Records are keyed by ID and indexed by UserID and Kind; queries always
// carry the UserID so one user's records never answer another user's read.
type MemoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMemoryStorage creates a new MemoryStorage instance
func NewMemoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MemoryStorage {
	return &MemoryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MemoryStorage) SaveRecord(rec *models.MemoryRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("memory record ID is required")
	}
	if rec.UserID == "" {
		return fmt.Errorf("memory record user ID is required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if err := s.db.Store().Upsert(rec.ID, rec); err != nil {
		return fmt.Errorf("failed to save memory record: %w", err)
	}
	return nil
}

func (s *MemoryStorage) RecordsByKindSince(userID, kind string, since time.Time) ([]*models.MemoryRecord, error) {
	var recs []models.MemoryRecord
	query := badgerhold.Where("UserID").Eq(userID).
		And("Kind").Eq(kind).
		And("Timestamp").Ge(since).
		SortBy("Timestamp").Reverse()
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to query memory records: %w", err)
	}
	return toPointers(recs), nil
}

func (s *MemoryStorage) RecentByKind(userID, kind string, limit int) ([]*models.MemoryRecord, error) {
	var recs []models.MemoryRecord
	query := badgerhold.Where("UserID").Eq(userID).
		And("Kind").Eq(kind).
		SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to query memory records: %w", err)
	}
	return toPointers(recs), nil
}

func (s *MemoryStorage) AllForUser(userID string) ([]*models.MemoryRecord, error) {
	var recs []models.MemoryRecord
	query := badgerhold.Where("UserID").Eq(userID).SortBy("Timestamp").Reverse()
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to query memory records: %w", err)
	}
	return toPointers(recs), nil
}

func (s *MemoryStorage) DeleteOlderThan(cutoff time.Time) (int, error) {
	query := badgerhold.Where("Timestamp").Lt(cutoff)

	count, err := s.db.Store().Count(&models.MemoryRecord{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired records: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.MemoryRecord{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}

	s.logger.Info().Int("deleted", int(count)).Msg("Evicted expired memory records")
	return int(count), nil
}

func (s *MemoryStorage) Close() error {
	// Connection lifetime is owned by BadgerDB
	return nil
}

func toPointers(recs []models.MemoryRecord) []*models.MemoryRecord {
	result := make([]*models.MemoryRecord, len(recs))
	for i := range recs {
		result[i] = &recs[i]
	}
	return result
}
