package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opentempo/play-analytics/internal/rollup"
)

const recentUploadsLimit = 5

type RollupProvider interface {
	ArtistRollup(ctx context.Context, artistID uuid.UUID, now time.Time) (*rollup.ArtistRollup, error)
	PlatformRollup(ctx context.Context, now time.Time) (*rollup.PlatformRollup, error)
}

type PlayCounter interface {
	ListenerTotalPlays(ctx context.Context, listenerID uuid.UUID) (int64, error)
}

// Service is the read-only facade behind the dashboard endpoints. It owns
// no state and composes the rollup aggregator, the play counters and the
// collaborator tables.
type Service struct {
	rollups RollupProvider
	plays   PlayCounter
	collab  CollabRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(rollups RollupProvider, plays PlayCounter, collab CollabRepository, logger *zap.Logger) *Service {
	return &Service{
		rollups: rollups,
		plays:   plays,
		collab:  collab,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) ArtistStats(ctx context.Context, artistID uuid.UUID) (*ArtistStats, error) {
	r, err := s.rollups.ArtistRollup(ctx, artistID, s.now())
	if err != nil {
		s.logger.Error("Failed to get artist rollup",
			zap.Error(err),
			zap.String("artist_id", artistID.String()))
		return nil, fmt.Errorf("failed to get artist rollup: %w", err)
	}

	followers, following, err := s.collab.FollowerCounts(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follow counts: %w", err)
	}

	pending, err := s.collab.PendingTracks(ctx, &artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending count: %w", err)
	}

	unread, err := s.collab.UnreadNotifications(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification count: %w", err)
	}

	uploads, err := s.collab.RecentUploads(ctx, artistID, recentUploadsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent uploads: %w", err)
	}
	if uploads == nil {
		uploads = []Upload{}
	}

	return &ArtistStats{
		TotalPlays:          r.TotalPlays,
		FollowersCount:      followers,
		FollowingCount:      following,
		MonthlyListeners:    r.MonthlyListeners,
		TotalSongs:          r.TrackCount,
		TopSongs:            r.TopTracks,
		RecentUploads:       uploads,
		PendingCount:        pending,
		UnreadNotifications: unread,
	}, nil
}

func (s *Service) AdminStats(ctx context.Context) (*AdminStats, error) {
	r, err := s.rollups.PlatformRollup(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to get platform rollup", zap.Error(err))
		return nil, fmt.Errorf("failed to get platform rollup: %w", err)
	}

	pending, err := s.collab.PendingTracks(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending count: %w", err)
	}

	return &AdminStats{
		TotalPlays:      r.TotalPlays,
		PlaysToday:      r.PlaysToday,
		PendingApproval: pending,
		NewUsersToday:   r.NewUsersToday,
		NewMusicToday:   r.NewTracksToday,
	}, nil
}

func (s *Service) ListenerStats(ctx context.Context, listenerID uuid.UUID) (*ListenerStats, error) {
	total, err := s.plays.ListenerTotalPlays(ctx, listenerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listener stats: %w", err)
	}

	return &ListenerStats{TotalPlays: total}, nil
}
