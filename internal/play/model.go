package play

import (
	"time"

	"github.com/google/uuid"
)

// PlayEvent is one listener's one playback of one track. Append-only:
// events are never updated or deleted once written.
type PlayEvent struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	TrackID    uuid.UUID  `db:"track_id" json:"track_id"`
	ListenerID *uuid.UUID `db:"listener_id" json:"listener_id,omitempty"`
	OccurredAt time.Time  `db:"occurred_at" json:"occurred_at"`
}

// NewEvent builds a PlayEvent with a server-assigned timestamp. Client
// clocks are never trusted for windowing.
func NewEvent(trackID uuid.UUID, listenerID *uuid.UUID, occurredAt time.Time) *PlayEvent {
	return &PlayEvent{
		ID:         uuid.New(),
		TrackID:    trackID,
		ListenerID: listenerID,
		OccurredAt: occurredAt.UTC(),
	}
}

// Track is owned by the catalog service; this subsystem only reads its
// metadata and atomically bumps play_count.
type Track struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ArtistID  uuid.UUID `db:"artist_id" json:"artist_id"`
	Title     string    `db:"title" json:"title"`
	Status    string    `db:"status" json:"status"`
	IsPublic  bool      `db:"is_public" json:"is_public"`
	PlayCount int64     `db:"play_count" json:"play_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Receipt is the outcome of a play request. Counted=false means the play
// was a repeat inside the dedup window, which is not an error.
type Receipt struct {
	Plays   int64 `json:"plays"`
	Counted bool  `json:"counted"`
}

// Message is the Kafka payload published for every accepted play.
type Message struct {
	EventID    string    `json:"event_id"`
	TrackID    string    `json:"track_id"`
	ArtistID   string    `json:"artist_id"`
	ListenerID *string   `json:"listener_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newMessage(ev *PlayEvent, artistID uuid.UUID) *Message {
	msg := &Message{
		EventID:    ev.ID.String(),
		TrackID:    ev.TrackID.String(),
		ArtistID:   artistID.String(),
		OccurredAt: ev.OccurredAt,
	}
	if ev.ListenerID != nil {
		s := ev.ListenerID.String()
		msg.ListenerID = &s
	}
	return msg
}
