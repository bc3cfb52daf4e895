package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opentempo/play-analytics/internal/rollup"
	"github.com/opentempo/play-analytics/internal/trending"
)

type fakeRollups struct {
	artist   *rollup.ArtistRollup
	platform *rollup.PlatformRollup
	err      error
}

func (f *fakeRollups) ArtistRollup(ctx context.Context, artistID uuid.UUID, now time.Time) (*rollup.ArtistRollup, error) {
	return f.artist, f.err
}

func (f *fakeRollups) PlatformRollup(ctx context.Context, now time.Time) (*rollup.PlatformRollup, error) {
	return f.platform, f.err
}

type fakeCounter struct {
	total int64
	err   error
}

func (f *fakeCounter) ListenerTotalPlays(ctx context.Context, listenerID uuid.UUID) (int64, error) {
	return f.total, f.err
}

type fakeCollab struct{}

func (fakeCollab) FollowerCounts(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	return 12, 3, nil
}

func (fakeCollab) UnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 4, nil
}

func (fakeCollab) PendingTracks(ctx context.Context, artistID *uuid.UUID) (int64, error) {
	return 1, nil
}

func (fakeCollab) RecentUploads(ctx context.Context, artistID uuid.UUID, limit int) ([]Upload, error) {
	return []Upload{{ID: uuid.New(), Title: "demo", Status: "pending"}}, nil
}

type fakeTrending struct {
	tracks []trending.RankedTrack
}

func (f *fakeTrending) Trending(ctx context.Context, limit int) ([]trending.RankedTrack, error) {
	if limit > 0 && limit < len(f.tracks) {
		return f.tracks[:limit], nil
	}
	return f.tracks, nil
}

func newTestRouter(rollups RollupProvider, counter PlayCounter, tr TrendingProvider) http.Handler {
	svc := NewService(rollups, counter, fakeCollab{}, zap.NewNop())
	r := chi.NewRouter()
	NewHandler(svc, tr, zap.NewNop()).Register(r)
	return r
}

func TestArtistStatsHandler(t *testing.T) {
	rollups := &fakeRollups{artist: &rollup.ArtistRollup{
		TotalPlays:       200,
		MonthlyListeners: 9,
		TrackCount:       6,
		TopTracks:        []rollup.TrackStat{{Title: "hit", PlayCount: 80}},
	}}
	router := newTestRouter(rollups, &fakeCounter{}, &fakeTrending{})

	req := httptest.NewRequest(http.MethodGet, "/stats/artist", nil)
	req.Header.Set(artistIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ArtistStats
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalPlays != 200 || resp.MonthlyListeners != 9 || resp.TotalSongs != 6 {
		t.Errorf("response = %+v", resp)
	}
	if resp.FollowersCount != 12 || resp.FollowingCount != 3 {
		t.Errorf("follow counts = %d/%d, want 12/3", resp.FollowersCount, resp.FollowingCount)
	}
	if resp.PendingCount != 1 || resp.UnreadNotifications != 4 {
		t.Errorf("collaborator counts = %+v", resp)
	}
}

func TestArtistStatsHandlerMissingIdentity(t *testing.T) {
	router := newTestRouter(&fakeRollups{}, &fakeCounter{}, &fakeTrending{})

	req := httptest.NewRequest(http.MethodGet, "/stats/artist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminStatsHandler(t *testing.T) {
	rollups := &fakeRollups{platform: &rollup.PlatformRollup{
		TotalPlays:     5000,
		PlaysToday:     120,
		NewUsersToday:  7,
		NewTracksToday: 2,
	}}
	router := newTestRouter(rollups, &fakeCounter{}, &fakeTrending{})

	req := httptest.NewRequest(http.MethodGet, "/stats/admin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp AdminStats
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalPlays != 5000 || resp.NewUsersToday != 7 || resp.NewMusicToday != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.PendingApproval != 1 {
		t.Errorf("PendingApproval = %d, want 1", resp.PendingApproval)
	}
}

func TestAdminStatsHandlerAggregationFailure(t *testing.T) {
	router := newTestRouter(&fakeRollups{err: errors.New("store unavailable")}, &fakeCounter{}, &fakeTrending{})

	req := httptest.NewRequest(http.MethodGet, "/stats/admin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// No partial results: the failure surfaces as a service error.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestListenerStatsHandler(t *testing.T) {
	router := newTestRouter(&fakeRollups{}, &fakeCounter{total: 33}, &fakeTrending{})

	req := httptest.NewRequest(http.MethodGet, "/stats/listener/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ListenerStats
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalPlays != 33 {
		t.Errorf("TotalPlays = %d, want 33", resp.TotalPlays)
	}
}

func TestTrendingHandler(t *testing.T) {
	tr := &fakeTrending{tracks: []trending.RankedTrack{
		{Title: "first", PlayCount: 80},
		{Title: "second", PlayCount: 50},
		{Title: "third", PlayCount: 10},
	}}
	router := newTestRouter(&fakeRollups{}, &fakeCounter{}, tr)

	req := httptest.NewRequest(http.MethodGet, "/trending?limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Tracks []trending.RankedTrack `json:"tracks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Tracks) != 2 || resp.Tracks[0].PlayCount != 80 {
		t.Errorf("tracks = %+v", resp.Tracks)
	}
}

func TestTrendingHandlerBadLimit(t *testing.T) {
	router := newTestRouter(&fakeRollups{}, &fakeCounter{}, &fakeTrending{})

	req := httptest.NewRequest(http.MethodGet, "/trending?limit=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
