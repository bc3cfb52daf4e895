package play

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type KafkaProducer interface {
	SendMessage(ctx context.Context, key string, value any) error
}

type Service struct {
	repo        Repository
	producer    KafkaProducer
	logger      *zap.Logger
	dedupWindow time.Duration
	now         func() time.Time
}

func NewService(repo Repository, producer KafkaProducer, logger *zap.Logger, dedupWindow time.Duration) *Service {
	return &Service{
		repo:        repo,
		producer:    producer,
		logger:      logger,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// ShouldCount is the dedup gate: read-only, no side effects. Anonymous
// plays always count because there is no identity to dedupe against.
func (s *Service) ShouldCount(ctx context.Context, listenerID *uuid.UUID, trackID uuid.UUID, now time.Time) (bool, error) {
	if listenerID == nil {
		return true, nil
	}

	seen, err := s.repo.HasRecentPlay(ctx, *listenerID, trackID, now.Add(-s.dedupWindow))
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}

	return !seen, nil
}

// RecordPlay runs the ingestion flow: track lookup, dedup-gated append,
// counter increment, Kafka publish. A rejected repeat is a normal outcome
// and comes back as Counted=false with the current total.
func (s *Service) RecordPlay(ctx context.Context, trackID uuid.UUID, listenerID *uuid.UUID) (*Receipt, error) {
	track, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		if !errors.Is(err, ErrTrackNotFound) {
			s.logger.Error("failed to resolve track",
				zap.Error(err),
				zap.String("track_id", trackID.String()))
		}
		return nil, err
	}

	now := s.now().UTC()
	event := NewEvent(trackID, listenerID, now)
	cutoff := now.Add(-s.dedupWindow)

	newCount, err := s.repo.AppendAndCount(ctx, event, cutoff)
	if err != nil {
		if errors.Is(err, ErrDuplicatePlay) {
			// A concurrent request may have counted this play already;
			// re-run the gate once, then settle on "not counted".
			if listenerID != nil {
				if seen, checkErr := s.repo.HasRecentPlay(ctx, *listenerID, trackID, cutoff); checkErr == nil && !seen {
					s.logger.Warn("write conflict without matching prior event",
						zap.String("track_id", trackID.String()))
				}
			}

			current, countErr := s.repo.TrackPlayCount(ctx, trackID)
			if countErr != nil {
				return nil, fmt.Errorf("failed to read current count: %w", countErr)
			}

			s.logger.Debug("repeat play inside dedup window",
				zap.String("track_id", trackID.String()),
				zap.Int64("play_count", current))

			return &Receipt{Plays: current, Counted: false}, nil
		}

		s.logger.Error("failed to record play",
			zap.Error(err),
			zap.String("track_id", trackID.String()))
		return nil, fmt.Errorf("failed to record play: %w", err)
	}

	// Plays from one track land in one partition.
	key := trackID.String()

	if err := s.producer.SendMessage(ctx, key, newMessage(event, track.ArtistID)); err != nil {
		s.logger.Error("failed to publish play event",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Play counted",
		zap.String("event_id", event.ID.String()),
		zap.String("track_id", trackID.String()),
		zap.Bool("anonymous", listenerID == nil),
		zap.Int64("play_count", newCount),
	)

	return &Receipt{Plays: newCount, Counted: true}, nil
}

// ListenerTotalPlays is a lifetime counter, unfiltered by any window.
func (s *Service) ListenerTotalPlays(ctx context.Context, listenerID uuid.UUID) (int64, error) {
	count, err := s.repo.ListenerPlayCount(ctx, listenerID)
	if err != nil {
		s.logger.Error("failed to count listener plays",
			zap.Error(err),
			zap.String("listener_id", listenerID.String()))
		return 0, fmt.Errorf("failed to count listener plays: %w", err)
	}

	return count, nil
}
