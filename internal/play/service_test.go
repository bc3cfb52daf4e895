package play

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeRepo implements Repository in memory with the same dedup semantics
// as the SQL implementation: the gate check and the append are serialized.
type fakeRepo struct {
	mu     sync.Mutex
	tracks map[uuid.UUID]*Track
	events []*PlayEvent
}

func newFakeRepo(tracks ...*Track) *fakeRepo {
	r := &fakeRepo{tracks: make(map[uuid.UUID]*Track)}
	for _, tr := range tracks {
		r.tracks[tr.ID] = tr
	}
	return r
}

func (r *fakeRepo) GetTrack(ctx context.Context, trackID uuid.UUID) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track, ok := r.tracks[trackID]
	if !ok {
		return nil, ErrTrackNotFound
	}
	copied := *track
	return &copied, nil
}

func (r *fakeRepo) hasRecentLocked(listenerID, trackID uuid.UUID, cutoff time.Time) bool {
	for _, ev := range r.events {
		if ev.ListenerID != nil && *ev.ListenerID == listenerID && ev.TrackID == trackID && !ev.OccurredAt.Before(cutoff) {
			return true
		}
	}
	return false
}

func (r *fakeRepo) HasRecentPlay(ctx context.Context, listenerID, trackID uuid.UUID, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasRecentLocked(listenerID, trackID, cutoff), nil
}

func (r *fakeRepo) AppendAndCount(ctx context.Context, event *PlayEvent, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ListenerID != nil && r.hasRecentLocked(*event.ListenerID, event.TrackID, cutoff) {
		return 0, ErrDuplicatePlay
	}

	track, ok := r.tracks[event.TrackID]
	if !ok {
		return 0, ErrTrackNotFound
	}

	r.events = append(r.events, event)
	track.PlayCount++
	return track.PlayCount, nil
}

func (r *fakeRepo) TrackPlayCount(ctx context.Context, trackID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track, ok := r.tracks[trackID]
	if !ok {
		return 0, ErrTrackNotFound
	}
	return track.PlayCount, nil
}

func (r *fakeRepo) ListenerPlayCount(ctx context.Context, listenerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, ev := range r.events {
		if ev.ListenerID != nil && *ev.ListenerID == listenerID {
			count++
		}
	}
	return count, nil
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []any
	fail     bool
}

func (p *fakeProducer) SendMessage(ctx context.Context, key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.messages = append(p.messages, value)
	return nil
}

func newTestService(repo Repository, producer KafkaProducer) *Service {
	return NewService(repo, producer, zap.NewNop(), 24*time.Hour)
}

func testTrack() *Track {
	return &Track{
		ID:       uuid.New(),
		ArtistID: uuid.New(),
		Title:    "test track",
		Status:   "approved",
		IsPublic: true,
	}
}

func TestRecordPlayUnknownTrack(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeProducer{})

	_, err := svc.RecordPlay(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("RecordPlay error = %v, want ErrTrackNotFound", err)
	}
}

func TestRecordPlayIdempotentWithinWindow(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	svc := newTestService(repo, &fakeProducer{})
	listenerID := uuid.New()

	counted := 0
	for i := 0; i < 10; i++ {
		receipt, err := svc.RecordPlay(context.Background(), track.ID, &listenerID)
		if err != nil {
			t.Fatalf("RecordPlay %d returned error: %v", i, err)
		}
		if receipt.Counted {
			counted++
		}
		if receipt.Plays != 1 {
			t.Errorf("RecordPlay %d plays = %d, want 1", i, receipt.Plays)
		}
	}

	if counted != 1 {
		t.Errorf("counted %d plays, want exactly 1", counted)
	}
}

func TestRecordPlayIdempotentUnderConcurrency(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	svc := newTestService(repo, &fakeProducer{})
	listenerID := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	counted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := svc.RecordPlay(context.Background(), track.ID, &listenerID)
			if err != nil {
				t.Errorf("RecordPlay returned error: %v", err)
				return
			}
			if receipt.Counted {
				mu.Lock()
				counted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if counted != 1 {
		t.Errorf("counted %d plays under concurrency, want exactly 1", counted)
	}
	if final, _ := repo.TrackPlayCount(context.Background(), track.ID); final != 1 {
		t.Errorf("final play count = %d, want 1", final)
	}
}

func TestRecordPlayWindowBoundary(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	svc := newTestService(repo, &fakeProducer{})
	listenerID := uuid.New()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if receipt, _ := svc.RecordPlay(context.Background(), track.ID, &listenerID); !receipt.Counted {
		t.Fatal("first play should be counted")
	}

	// 23h59m later: still inside the rolling window.
	svc.now = func() time.Time { return base.Add(23*time.Hour + 59*time.Minute) }
	if receipt, _ := svc.RecordPlay(context.Background(), track.ID, &listenerID); receipt.Counted {
		t.Error("play at +23h59m should not be counted")
	}

	// 24h1s later: window expired, counts again.
	svc.now = func() time.Time { return base.Add(24*time.Hour + time.Second) }
	receipt, err := svc.RecordPlay(context.Background(), track.ID, &listenerID)
	if err != nil {
		t.Fatalf("RecordPlay returned error: %v", err)
	}
	if !receipt.Counted {
		t.Error("play at +24h1s should be counted")
	}
	if receipt.Plays != 2 {
		t.Errorf("plays = %d, want 2", receipt.Plays)
	}
}

func TestRecordPlayAnonymousNeverDedupes(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	svc := newTestService(repo, &fakeProducer{})

	for i := 1; i <= 5; i++ {
		receipt, err := svc.RecordPlay(context.Background(), track.ID, nil)
		if err != nil {
			t.Fatalf("RecordPlay %d returned error: %v", i, err)
		}
		if !receipt.Counted {
			t.Errorf("anonymous play %d not counted", i)
		}
		if receipt.Plays != int64(i) {
			t.Errorf("anonymous play %d total = %d, want %d", i, receipt.Plays, i)
		}
	}
}

func TestRecordPlayPublishFailureDoesNotFail(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	svc := newTestService(repo, &fakeProducer{fail: true})

	receipt, err := svc.RecordPlay(context.Background(), track.ID, nil)
	if err != nil {
		t.Fatalf("RecordPlay returned error: %v", err)
	}
	if !receipt.Counted {
		t.Error("play should be counted even when publish fails")
	}
}

func TestRecordPlayPublishesAcceptedOnly(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	producer := &fakeProducer{}
	svc := newTestService(repo, producer)
	listenerID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordPlay(context.Background(), track.ID, &listenerID); err != nil {
			t.Fatalf("RecordPlay returned error: %v", err)
		}
	}

	if len(producer.messages) != 1 {
		t.Errorf("published %d messages, want 1 (rejected repeats must not publish)", len(producer.messages))
	}
}

func TestShouldCount(t *testing.T) {
	track := testTrack()
	repo := newFakeRepo(track)
	svc := newTestService(repo, &fakeProducer{})
	listenerID := uuid.New()
	now := time.Now().UTC()

	// Anonymous plays always count.
	if ok, _ := svc.ShouldCount(context.Background(), nil, track.ID, now); !ok {
		t.Error("anonymous play should count")
	}

	if ok, _ := svc.ShouldCount(context.Background(), &listenerID, track.ID, now); !ok {
		t.Error("first play should count")
	}

	if _, err := svc.RecordPlay(context.Background(), track.ID, &listenerID); err != nil {
		t.Fatalf("RecordPlay returned error: %v", err)
	}

	if ok, _ := svc.ShouldCount(context.Background(), &listenerID, track.ID, time.Now().UTC()); ok {
		t.Error("repeat inside window should not count")
	}
}
