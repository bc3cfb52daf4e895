package rollup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Summarizer consumes accepted-play messages and maintains the hourly
// play_summary table, so platform dashboards read a materialized aggregate
// instead of rescanning the event log.
type Summarizer struct {
	repo   Repository
	logger *zap.Logger

	mu              sync.Mutex
	uniqueListeners map[string]map[string]bool
}

func NewSummarizer(repo Repository, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		repo:            repo,
		logger:          logger,
		uniqueListeners: make(map[string]map[string]bool),
	}
}

func (s *Summarizer) ProcessPlay(ctx context.Context, data *PlayData) error {
	date := data.OccurredAt.UTC().Truncate(24 * time.Hour)
	hour := data.OccurredAt.UTC().Hour()

	key := fmt.Sprintf("%s-%d", date.Format("2006-01-02"), hour)

	s.mu.Lock()
	if data.ListenerID != nil {
		if s.uniqueListeners[key] == nil {
			s.uniqueListeners[key] = make(map[string]bool)
		}
		s.uniqueListeners[key][*data.ListenerID] = true
	}
	unique := int64(len(s.uniqueListeners[key]))
	s.mu.Unlock()

	summary := NewSummary(date, hour)
	summary.TotalPlays = 1
	summary.UniqueListeners = unique

	if err := s.repo.UpsertSummary(ctx, summary); err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	s.logger.Debug("Play summarized",
		zap.String("event_id", data.EventID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("hour", hour),
	)

	return nil
}

// CreateMessageHandler adapts ProcessPlay to the Kafka consumer callback.
func (s *Summarizer) CreateMessageHandler() func(ctx context.Context, key, value []byte) error {
	return func(ctx context.Context, key, value []byte) error {
		var data PlayData
		if err := json.Unmarshal(value, &data); err != nil {
			s.logger.Error("Failed to unmarshal play message",
				zap.Error(err),
				zap.String("value", string(value)),
			)
			return err
		}

		return s.ProcessPlay(ctx, &data)
	}
}

// CleanupOldCache drops unique-listener sets for buckets older than a day;
// run it periodically from the service main.
func (s *Summarizer) CleanupOldCache() {
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02")

	s.mu.Lock()
	for key := range s.uniqueListeners {
		if key < cutoff {
			delete(s.uniqueListeners, key)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("Cache cleanup completed")
}
