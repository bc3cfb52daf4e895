package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Repository interface {
	CountArtistTracks(ctx context.Context, artistID uuid.UUID) (int64, error)
	SumArtistPlays(ctx context.Context, artistID uuid.UUID) (int64, error)
	// DistinctListeners counts distinct identified listeners over the
	// artist's tracks in [from, to]. Anonymous events are excluded.
	DistinctListeners(ctx context.Context, artistID uuid.UUID, from, to time.Time) (int64, error)
	TopTracks(ctx context.Context, artistID uuid.UUID, limit int) ([]TrackStat, error)
	SumAllPlays(ctx context.Context) (int64, error)
	CountUsersSince(ctx context.Context, since time.Time) (int64, error)
	CountTracksSince(ctx context.Context, since time.Time) (int64, error)
	UpsertSummary(ctx context.Context, summary *Summary) error
	SumSummaryPlays(ctx context.Context, from time.Time) (int64, error)
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

func (r *repository) CountArtistTracks(ctx context.Context, artistID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM tracks WHERE artist_id = $1`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, artistID); err != nil {
		return 0, fmt.Errorf("failed to count artist tracks: %w", err)
	}

	return count, nil
}

func (r *repository) SumArtistPlays(ctx context.Context, artistID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(play_count), 0) FROM tracks WHERE artist_id = $1`

	var total int64
	if err := r.db.GetContext(ctx, &total, query, artistID); err != nil {
		return 0, fmt.Errorf("failed to sum artist plays: %w", err)
	}

	return total, nil
}

func (r *repository) DistinctListeners(ctx context.Context, artistID uuid.UUID, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT e.listener_id)
		FROM play_events e
		JOIN tracks t ON t.id = e.track_id
		WHERE t.artist_id = $1
		  AND e.listener_id IS NOT NULL
		  AND e.occurred_at >= $2
		  AND e.occurred_at <= $3
	`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, artistID, from, to); err != nil {
		return 0, fmt.Errorf("failed to count distinct listeners: %w", err)
	}

	return count, nil
}

func (r *repository) TopTracks(ctx context.Context, artistID uuid.UUID, limit int) ([]TrackStat, error) {
	// Ties break toward the most recently created track so pagination
	// stays stable.
	query := `
		SELECT id, title, play_count, created_at
		FROM tracks
		WHERE artist_id = $1
		ORDER BY play_count DESC, created_at DESC
		LIMIT $2
	`

	var tracks []TrackStat
	if err := r.db.SelectContext(ctx, &tracks, query, artistID, limit); err != nil {
		return nil, fmt.Errorf("failed to get top tracks: %w", err)
	}

	return tracks, nil
}

func (r *repository) SumAllPlays(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(play_count), 0) FROM tracks`

	var total int64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("failed to sum platform plays: %w", err)
	}

	return total, nil
}

func (r *repository) CountUsersSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE created_at >= $1`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("failed to count new users: %w", err)
	}

	return count, nil
}

func (r *repository) CountTracksSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM tracks WHERE created_at >= $1`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("failed to count new tracks: %w", err)
	}

	return count, nil
}

func (r *repository) UpsertSummary(ctx context.Context, summary *Summary) error {
	query := `
		INSERT INTO play_summary (summary_date, hour, total_plays, unique_listeners, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (summary_date, hour)
		DO UPDATE SET
			total_plays = play_summary.total_plays + EXCLUDED.total_plays,
			unique_listeners = EXCLUDED.unique_listeners,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		summary.Date,
		summary.Hour,
		summary.TotalPlays,
		summary.UniqueListeners,
		summary.UpdatedAt,
	).Scan(&summary.ID)

	if err != nil {
		r.logger.Error("Failed to upsert play summary", zap.Error(err))
		return fmt.Errorf("failed to upsert play summary: %w", err)
	}

	r.logger.Debug("Play summary upserted",
		zap.String("date", summary.Date.Format("2006-01-02")),
		zap.Int("hour", summary.Hour),
		zap.Int64("total_plays", summary.TotalPlays),
	)

	return nil
}

func (r *repository) SumSummaryPlays(ctx context.Context, from time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_plays), 0)
		FROM play_summary
		WHERE summary_date >= $1::date
	`

	var total int64
	if err := r.db.GetContext(ctx, &total, query, from); err != nil {
		return 0, fmt.Errorf("failed to sum summary plays: %w", err)
	}

	return total, nil
}
