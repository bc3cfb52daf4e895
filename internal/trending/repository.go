package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type RankedTrack struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ArtistID  uuid.UUID `db:"artist_id" json:"artist_id"`
	Title     string    `db:"title" json:"title"`
	PlayCount int64     `db:"play_count" json:"play_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Repository interface {
	TopByPlayCount(ctx context.Context, limit int) ([]RankedTrack, error)
}

type repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewRepository(db *sqlx.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) TopByPlayCount(ctx context.Context, limit int) ([]RankedTrack, error) {
	// Secondary key on id keeps the order deterministic when counts tie.
	query := `
		SELECT id, artist_id, title, play_count, created_at
		FROM tracks
		WHERE is_public AND status = 'approved'
		ORDER BY play_count DESC, id ASC
		LIMIT $1
	`

	var tracks []RankedTrack
	if err := r.db.SelectContext(ctx, &tracks, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get trending tracks: %w", err)
	}

	return tracks, nil
}
