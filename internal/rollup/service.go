package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service computes rollups on demand from the counters, the event log and
// the summary table. All reads; ingestion is never blocked.
type Service struct {
	repo          Repository
	logger        *zap.Logger
	monthlyWindow time.Duration
	topTracks     int
}

func NewService(repo Repository, logger *zap.Logger, monthlyWindow time.Duration, topTracks int) *Service {
	return &Service{
		repo:          repo,
		logger:        logger,
		monthlyWindow: monthlyWindow,
		topTracks:     topTracks,
	}
}

func (s *Service) ArtistRollup(ctx context.Context, artistID uuid.UUID, now time.Time) (*ArtistRollup, error) {
	trackCount, err := s.repo.CountArtistTracks(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to build artist rollup: %w", err)
	}

	// An artist with no tracks has no plays and no listeners; skip the
	// event-log scan entirely.
	if trackCount == 0 {
		return &ArtistRollup{ArtistID: artistID, TopTracks: []TrackStat{}}, nil
	}

	totalPlays, err := s.repo.SumArtistPlays(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to build artist rollup: %w", err)
	}

	monthly, err := s.repo.DistinctListeners(ctx, artistID, now.Add(-s.monthlyWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to build artist rollup: %w", err)
	}

	top, err := s.repo.TopTracks(ctx, artistID, s.topTracks)
	if err != nil {
		return nil, fmt.Errorf("failed to build artist rollup: %w", err)
	}
	if top == nil {
		top = []TrackStat{}
	}

	s.logger.Debug("Artist rollup computed",
		zap.String("artist_id", artistID.String()),
		zap.Int64("total_plays", totalPlays),
		zap.Int64("monthly_listeners", monthly),
	)

	return &ArtistRollup{
		ArtistID:         artistID,
		TotalPlays:       totalPlays,
		MonthlyListeners: monthly,
		TrackCount:       trackCount,
		TopTracks:        top,
	}, nil
}

func (s *Service) PlatformRollup(ctx context.Context, now time.Time) (*PlatformRollup, error) {
	totalPlays, err := s.repo.SumAllPlays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform rollup: %w", err)
	}

	midnight := LocalMidnight(now)

	newUsers, err := s.repo.CountUsersSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform rollup: %w", err)
	}

	newTracks, err := s.repo.CountTracksSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform rollup: %w", err)
	}

	playsToday, err := s.repo.SumSummaryPlays(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform rollup: %w", err)
	}

	return &PlatformRollup{
		TotalPlays:     totalPlays,
		PlaysToday:     playsToday,
		NewUsersToday:  newUsers,
		NewTracksToday: newTracks,
	}, nil
}

// LocalMidnight zeroes the clock in the server's local calendar. Callers in
// other time zones see a different day boundary; this matches the product's
// documented behavior and must not be silently switched to UTC.
func LocalMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
