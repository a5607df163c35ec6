package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
	"github.com/docuchat/docuchat/internal/models"
)

// Service implements MemoryService over a MemoryStorage backend. All
// reads are best-effort: a failing backend yields empty results and a
// warning, never an error to the answer pipeline. Writes return errors
// so direct callers (ingestion) can surface them, but the pipeline's
// post-answer write-back ignores them.
type Service struct {
	storage interfaces.MemoryStorage
	config  *common.MemoryConfig
	logger  arbor.ILogger
	cron    *cron.Cron
}

// NewService creates a new memory service
func NewService(storage interfaces.MemoryStorage, config *common.MemoryConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// AppendInteraction stores a user_interaction record for a completed answer
func (s *Service) AppendInteraction(ctx context.Context, userID, query, answer string, metadata map[string]interface{}) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	rec := &models.MemoryRecord{
		ID:        common.NewRecordID(),
		UserID:    userID,
		Kind:      models.MemoryKindUserInteraction,
		Content:   fmt.Sprintf("Q: %s\nA: %s", query, answer),
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	if err := s.storage.SaveRecord(rec); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to append interaction memory")
		return fmt.Errorf("%w: %v", interfaces.ErrMemoryUnavailable, err)
	}

	return nil
}

// AppendChunks stores one document_chunk record per ingested chunk
func (s *Service) AppendChunks(ctx context.Context, userID string, chunks []models.Chunk, metadata map[string]interface{}) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	for _, chunk := range chunks {
		meta := make(map[string]interface{}, len(metadata)+1)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["source"] = chunk.Source()

		rec := &models.MemoryRecord{
			ID:        common.NewRecordID(),
			UserID:    userID,
			Kind:      models.MemoryKindDocumentChunk,
			Content:   chunk.Text,
			Timestamp: time.Now(),
			Metadata:  meta,
		}

		if err := s.storage.SaveRecord(rec); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to append chunk memory")
			return fmt.Errorf("%w: %v", interfaces.ErrMemoryUnavailable, err)
		}
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("chunk_count", len(chunks)).
		Msg("Appended document chunks to memory")

	return nil
}

// RecentDocuments returns document_chunk records newer than the window,
// newest first.
func (s *Service) RecentDocuments(ctx context.Context, userID string, window time.Duration) []*models.MemoryRecord {
	since := time.Now().Add(-window)
	recs, err := s.storage.RecordsByKindSince(userID, models.MemoryKindDocumentChunk, since)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Recent documents fetch failed, continuing without")
		return nil
	}
	return recs
}

// ConversationContext returns the most recent user_interaction records,
// newest first, bounded by limit.
func (s *Service) ConversationContext(ctx context.Context, userID string, limit int) []*models.MemoryRecord {
	if limit <= 0 {
		limit = s.config.ConversationLimit
	}
	recs, err := s.storage.RecentByKind(userID, models.MemoryKindUserInteraction, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Conversation fetch failed, continuing without")
		return nil
	}
	return recs
}

// RelevantMemories returns records lexically matching the query across
// all kinds, most relevant first, bounded by limit. Scoring is term
// overlap; recency breaks ties.
func (s *Service) RelevantMemories(ctx context.Context, userID, query string, limit int) []*models.MemoryRecord {
	if limit <= 0 {
		limit = s.config.RelevantLimit
	}

	recs, err := s.storage.AllForUser(userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Relevant memories fetch failed, continuing without")
		return nil
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		rec   *models.MemoryRecord
		score int
	}

	matches := make([]scored, 0, len(recs))
	for _, rec := range recs {
		content := strings.ToLower(rec.Content)
		score := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{rec: rec, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].rec.Timestamp.After(matches[j].rec.Timestamp)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]*models.MemoryRecord, len(matches))
	for i, m := range matches {
		result[i] = m.rec
	}
	return result
}

// queryTerms lowercases and tokenizes a query, dropping short tokens
// that would match everything.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// StartEviction schedules age-based eviction on the configured cron
// expression. A non-positive EvictionDays disables eviction entirely.
func (s *Service) StartEviction() error {
	if s.config.EvictionDays <= 0 {
		s.logger.Debug().Msg("Memory eviction disabled")
		return nil
	}

	schedule := s.config.EvictionSchedule
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		cutoff := time.Now().AddDate(0, 0, -s.config.EvictionDays)
		deleted, err := s.storage.DeleteOlderThan(cutoff)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Memory eviction run failed")
			return
		}
		s.logger.Info().
			Int("deleted", deleted).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Evicted aged memory records")
	})
	if err != nil {
		return fmt.Errorf("invalid eviction schedule '%s': %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Int("eviction_days", s.config.EvictionDays).
		Msg("Memory eviction scheduled")

	return nil
}

// Stop halts the eviction scheduler if running
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
