package play

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/opentempo/play-analytics/pkg/postgres"
)

type Repository interface {
	GetTrack(ctx context.Context, trackID uuid.UUID) (*Track, error)
	// HasRecentPlay reports whether the listener already played the track
	// at or after cutoff. Read-only; used by the gate and the conflict
	// re-check.
	HasRecentPlay(ctx context.Context, listenerID, trackID uuid.UUID, cutoff time.Time) (bool, error)
	// AppendAndCount appends the event and increments the track counter in
	// one transaction, serialized per (listener, track) pair. Returns the
	// new counter value, or ErrDuplicatePlay when the pair already played
	// inside the window.
	AppendAndCount(ctx context.Context, event *PlayEvent, cutoff time.Time) (int64, error)
	TrackPlayCount(ctx context.Context, trackID uuid.UUID) (int64, error)
	ListenerPlayCount(ctx context.Context, listenerID uuid.UUID) (int64, error)
}

type repository struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewRepository(db *postgres.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) GetTrack(ctx context.Context, trackID uuid.UUID) (*Track, error) {
	query := `
		SELECT id, artist_id, title, status, is_public, play_count, created_at
		FROM tracks
		WHERE id = $1
	`

	var track Track
	err := r.db.GetContext(ctx, &track, query, trackID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	return &track, nil
}

func (r *repository) HasRecentPlay(ctx context.Context, listenerID, trackID uuid.UUID, cutoff time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM play_events
			WHERE listener_id = $1 AND track_id = $2 AND occurred_at >= $3
		)
	`

	var seen bool
	if err := r.db.GetContext(ctx, &seen, query, listenerID, trackID, cutoff); err != nil {
		return false, fmt.Errorf("failed to check recent plays: %w", err)
	}

	return seen, nil
}

func (r *repository) AppendAndCount(ctx context.Context, event *PlayEvent, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if event.ListenerID != nil {
		// Serializes concurrent ingestions for the same (listener, track)
		// pair; the lock is released at commit/rollback.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockKey(*event.ListenerID, event.TrackID)); err != nil {
			return 0, fmt.Errorf("failed to acquire pair lock: %w", err)
		}

		var seen bool
		existsQuery := `
			SELECT EXISTS (
				SELECT 1 FROM play_events
				WHERE listener_id = $1 AND track_id = $2 AND occurred_at >= $3
			)
		`
		if err := tx.GetContext(ctx, &seen, existsQuery, event.ListenerID, event.TrackID, cutoff); err != nil {
			return 0, fmt.Errorf("failed to check recent plays: %w", err)
		}
		if seen {
			return 0, ErrDuplicatePlay
		}
	}

	insertQuery := `
		INSERT INTO play_events (id, track_id, listener_id, occurred_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, insertQuery, event.ID, event.TrackID, event.ListenerID, event.OccurredAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.logger.Warn("Concurrent duplicate play ignored",
				zap.String("event_id", event.ID.String()),
				zap.String("track_id", event.TrackID.String()),
			)
			return 0, ErrDuplicatePlay
		}
		return 0, fmt.Errorf("failed to append play event: %w", err)
	}

	// Atomic add; never read-modify-write at the application level.
	var newCount int64
	incrementQuery := `
		UPDATE tracks
		SET play_count = play_count + 1
		WHERE id = $1
		RETURNING play_count
	`
	if err := tx.QueryRowContext(ctx, incrementQuery, event.TrackID).Scan(&newCount); err != nil {
		return 0, fmt.Errorf("failed to increment play count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit play: %w", err)
	}

	r.logger.Debug("Play event recorded",
		zap.String("event_id", event.ID.String()),
		zap.String("track_id", event.TrackID.String()),
		zap.Int64("play_count", newCount),
	)

	return newCount, nil
}

func (r *repository) TrackPlayCount(ctx context.Context, trackID uuid.UUID) (int64, error) {
	query := `SELECT play_count FROM tracks WHERE id = $1`

	var count int64
	err := r.db.GetContext(ctx, &count, query, trackID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrTrackNotFound
		}
		return 0, fmt.Errorf("failed to get play count: %w", err)
	}

	return count, nil
}

func (r *repository) ListenerPlayCount(ctx context.Context, listenerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM play_events WHERE listener_id = $1`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, listenerID); err != nil {
		return 0, fmt.Errorf("failed to count listener plays: %w", err)
	}

	return count, nil
}

// pairLockKey derives the advisory lock key for a (listener, track) pair.
func pairLockKey(listenerID, trackID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(listenerID[:])
	h.Write(trackID[:])
	return int64(h.Sum64())
}
