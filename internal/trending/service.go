package trending

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service orders publicly visible tracks by play count for the discovery
// feed. Pure read; no side effects.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) Trending(ctx context.Context, limit int) ([]RankedTrack, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	tracks, err := s.repo.TopByPlayCount(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to rank tracks", zap.Error(err))
		return nil, fmt.Errorf("failed to rank tracks: %w", err)
	}
	if tracks == nil {
		tracks = []RankedTrack{}
	}

	return tracks, nil
}
