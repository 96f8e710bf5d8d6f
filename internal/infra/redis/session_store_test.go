package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"lyric-quiz-service/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := store.GetOrCreate("session-1")
	defer session.Close()
	if !mr.Exists("quiz:session:session-1") {
		t.Fatalf("expected redis key to be set")
	}
	if len(store.List()) != 1 {
		t.Fatalf("expected one listed session")
	}

	store.Delete("session-1")
	if mr.Exists("quiz:session:session-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreGetRefreshesLiveness(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	session := store.GetOrCreate("session-1")
	defer session.Close()

	now = now.Add(50 * time.Second)
	mr.FastForward(50 * time.Second)
	if _, ok := store.Get("session-1"); !ok {
		t.Fatalf("expected session present")
	}
	now = now.Add(50 * time.Second)
	mr.FastForward(50 * time.Second)
	if !mr.Exists("quiz:session:session-1") {
		t.Fatalf("expected liveness key extended by lookup")
	}
}

func TestSessionStorePositionTicksStayOffRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	service := app.NewQuizService(store, nil, nil)

	ctx := context.Background()
	if _, err := service.Open(ctx, "session-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer service.Close(ctx, "session-1")

	before := mr.CommandCount()
	for i := 0; i < 100; i++ {
		now = now.Add(100 * time.Millisecond)
		if err := service.ReportPosition(ctx, "session-1", float64(i)/10); err != nil {
			t.Fatalf("report position: %v", err)
		}
	}
	if got := mr.CommandCount() - before; got != 0 {
		t.Fatalf("expected no redis commands within half a ttl of ticks, got %d", got)
	}

	now = now.Add(30 * time.Second)
	if err := service.ReportPosition(ctx, "session-1", 12); err != nil {
		t.Fatalf("report position: %v", err)
	}
	if got := mr.CommandCount() - before; got != 1 {
		t.Fatalf("expected a single liveness refresh after half a ttl, got %d", got)
	}
}
