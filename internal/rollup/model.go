package rollup

import (
	"time"

	"github.com/google/uuid"
)

// ArtistRollup is computed on read; nothing here is persisted.
type ArtistRollup struct {
	ArtistID         uuid.UUID   `json:"artist_id"`
	TotalPlays       int64       `json:"total_plays"`
	MonthlyListeners int64       `json:"monthly_listeners"`
	TrackCount       int64       `json:"track_count"`
	TopTracks        []TrackStat `json:"top_tracks"`
}

type PlatformRollup struct {
	TotalPlays     int64 `json:"total_plays"`
	PlaysToday     int64 `json:"plays_today"`
	NewUsersToday  int64 `json:"new_users_today"`
	NewTracksToday int64 `json:"new_tracks_today"`
}

type TrackStat struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	PlayCount int64     `db:"play_count" json:"play_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Summary is one hourly bucket of the platform play summary maintained by
// the analytics consumer.
type Summary struct {
	ID              int       `db:"id" json:"id"`
	Date            time.Time `db:"summary_date" json:"date"`
	Hour            int       `db:"hour" json:"hour"`
	TotalPlays      int64     `db:"total_plays" json:"total_plays"`
	UniqueListeners int64     `db:"unique_listeners" json:"unique_listeners"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func NewSummary(date time.Time, hour int) *Summary {
	return &Summary{
		Date:      date.Truncate(24 * time.Hour),
		Hour:      hour,
		UpdatedAt: time.Now().UTC(),
	}
}

// PlayData mirrors the Kafka payload published by the ingestion service.
type PlayData struct {
	EventID    string    `json:"event_id"`
	TrackID    string    `json:"track_id"`
	ArtistID   string    `json:"artist_id"`
	ListenerID *string   `json:"listener_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
