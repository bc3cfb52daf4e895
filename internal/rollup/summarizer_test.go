package rollup

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSummarizerCountsDistinctListeners(t *testing.T) {
	repo := &fakeRepo{}
	s := NewSummarizer(repo, zap.NewNop())

	at := time.Date(2026, time.April, 2, 14, 5, 0, 0, time.UTC)
	listenerA := "aaaa1111-0000-0000-0000-000000000000"
	listenerB := "bbbb2222-0000-0000-0000-000000000000"

	plays := []*PlayData{
		{EventID: "1", TrackID: "t", ListenerID: &listenerA, OccurredAt: at},
		{EventID: "2", TrackID: "t", ListenerID: &listenerA, OccurredAt: at.Add(time.Minute)},
		{EventID: "3", TrackID: "t", ListenerID: &listenerB, OccurredAt: at.Add(2 * time.Minute)},
		{EventID: "4", TrackID: "t", ListenerID: nil, OccurredAt: at.Add(3 * time.Minute)},
	}

	for _, p := range plays {
		if err := s.ProcessPlay(context.Background(), p); err != nil {
			t.Fatalf("ProcessPlay returned error: %v", err)
		}
	}

	if len(repo.upserts) != 4 {
		t.Fatalf("upserted %d summaries, want 4", len(repo.upserts))
	}

	last := repo.upserts[3]
	if last.TotalPlays != 1 {
		t.Errorf("per-message increment = %d, want 1", last.TotalPlays)
	}
	// Two identified listeners; the repeat and the anonymous play add none.
	if last.UniqueListeners != 2 {
		t.Errorf("UniqueListeners = %d, want 2", last.UniqueListeners)
	}
	if last.Hour != 14 {
		t.Errorf("Hour = %d, want 14", last.Hour)
	}
}

func TestSummarizerMessageHandlerRejectsBadPayload(t *testing.T) {
	s := NewSummarizer(&fakeRepo{}, zap.NewNop())
	handler := s.CreateMessageHandler()

	if err := handler(context.Background(), nil, []byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestSummarizerCacheCleanup(t *testing.T) {
	repo := &fakeRepo{}
	s := NewSummarizer(repo, zap.NewNop())

	old := "2020-01-01-10"
	s.uniqueListeners[old] = map[string]bool{"x": true}

	s.CleanupOldCache()

	if _, ok := s.uniqueListeners[old]; ok {
		t.Error("stale bucket survived cleanup")
	}
}
