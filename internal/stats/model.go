package stats

import (
	"time"

	"github.com/google/uuid"

	"github.com/opentempo/play-analytics/internal/rollup"
)

// ArtistStats is the artist dashboard payload. The follower, upload,
// pending and notification fields are read from tables owned by the CRUD
// service; this subsystem never writes them.
type ArtistStats struct {
	TotalPlays          int64              `json:"totalPlays"`
	FollowersCount      int64              `json:"followersCount"`
	FollowingCount      int64              `json:"followingCount"`
	MonthlyListeners    int64              `json:"monthlyListeners"`
	TotalSongs          int64              `json:"totalSongs"`
	TopSongs            []rollup.TrackStat `json:"topSongs"`
	RecentUploads       []Upload           `json:"recentUploads"`
	PendingCount        int64              `json:"pendingCount"`
	UnreadNotifications int64              `json:"unreadNotifications"`
}

type AdminStats struct {
	TotalPlays      int64 `json:"totalPlays"`
	PlaysToday      int64 `json:"playsToday"`
	PendingApproval int64 `json:"pendingApproval"`
	NewUsersToday   int64 `json:"newUsersToday"`
	NewMusicToday   int64 `json:"newMusicToday"`
}

type ListenerStats struct {
	TotalPlays int64 `json:"totalPlays"`
}

type Upload struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
