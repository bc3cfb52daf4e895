package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// CollabRepository reads the collaborator tables owned by the CRUD service
// (follow graph, notifications, upload moderation). Strictly read-only.
type CollabRepository interface {
	FollowerCounts(ctx context.Context, userID uuid.UUID) (followers, following int64, err error)
	UnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	PendingTracks(ctx context.Context, artistID *uuid.UUID) (int64, error)
	RecentUploads(ctx context.Context, artistID uuid.UUID, limit int) ([]Upload, error)
}

type collabRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCollabRepository(db *sqlx.DB, logger *zap.Logger) CollabRepository {
	return &collabRepository{
		db:     db,
		logger: logger,
	}
}

func (r *collabRepository) FollowerCounts(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE followee_id = $1) AS followers,
			COUNT(*) FILTER (WHERE follower_id = $1) AS following
		FROM follows
		WHERE followee_id = $1 OR follower_id = $1
	`

	var counts struct {
		Followers int64 `db:"followers"`
		Following int64 `db:"following"`
	}
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return 0, 0, fmt.Errorf("failed to count follows: %w", err)
	}

	return counts.Followers, counts.Following, nil
}

func (r *collabRepository) UnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	return count, nil
}

func (r *collabRepository) PendingTracks(ctx context.Context, artistID *uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM tracks WHERE status = 'pending'`
	args := []interface{}{}

	if artistID != nil {
		query += ` AND artist_id = $1`
		args = append(args, *artistID)
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count pending tracks: %w", err)
	}

	return count, nil
}

func (r *collabRepository) RecentUploads(ctx context.Context, artistID uuid.UUID, limit int) ([]Upload, error) {
	query := `
		SELECT id, title, status, created_at
		FROM tracks
		WHERE artist_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var uploads []Upload
	if err := r.db.SelectContext(ctx, &uploads, query, artistID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent uploads: %w", err)
	}

	return uploads, nil
}
