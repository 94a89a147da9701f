package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionStore(client, time.Hour), mr
}

func waitingSession() *domain.Session {
	return &domain.Session{
		Code:                 "ABC123",
		QuizID:               "quiz-1",
		HostID:               "host-1",
		HostConnectionID:     "host-conn",
		Stage:                domain.StageWaiting,
		CurrentQuestionIndex: -1,
		Players: []*domain.Player{
			{Name: "Alex", ConnectionID: "conn-1", Active: true},
		},
		QuestionStats: make([]domain.QuestionStats, 1),
		QuestionOrder: []int{0},
		OptionOrder:   [][]int{{0, 1, 2, 3}},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.Save(ctx, waitingSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("game:session:ABC123") || !mr.Exists("game:active:ABC123") {
		t.Fatalf("expected session and active keys")
	}

	sess, err := store.Get(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Code != "ABC123" || len(sess.Players) != 1 || sess.Players[0].Name != "Alex" {
		t.Fatalf("unexpected round trip: %+v", sess)
	}
	if sess.CurrentQuestionIndex != -1 {
		t.Fatalf("index lost in round trip: %d", sess.CurrentQuestionIndex)
	}

	if _, err := store.Get(ctx, "NOPE99"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestActiveMarkerFollowsStage(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	sess := waitingSession()
	_ = store.Save(ctx, sess)

	active, err := store.ExistsActive(ctx, "ABC123")
	if err != nil || !active {
		t.Fatalf("expected active, got %v %v", active, err)
	}

	sess.Stage = domain.StageFinished
	_ = store.Save(ctx, sess)

	active, err = store.ExistsActive(ctx, "ABC123")
	if err != nil || active {
		t.Fatalf("expected inactive after finish, got %v %v", active, err)
	}
	// Record survives for late readers.
	if !mr.Exists("game:session:ABC123") {
		t.Fatalf("expected finished record retained")
	}
}

func TestFindByConnection(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	sess := waitingSession()
	_ = store.Save(ctx, sess)

	found, err := store.FindByConnection(ctx, "conn-1")
	if err != nil || found.Code != "ABC123" {
		t.Fatalf("find: %v %+v", err, found)
	}
	found, err = store.FindByConnection(ctx, "host-conn")
	if err != nil || found.Code != "ABC123" {
		t.Fatalf("find host: %v %+v", err, found)
	}

	// A connection no longer referenced by the record resolves to nothing,
	// even while its index entry is waiting out its TTL.
	sess.Players[0].ConnectionID = ""
	_ = store.Save(ctx, sess)
	if _, err := store.FindByConnection(ctx, "conn-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected stale index miss, got %v", err)
	}
}

func TestDeleteClearsKeys(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_ = store.Save(ctx, waitingSession())
	if err := store.Delete(ctx, "ABC123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("game:session:ABC123") || mr.Exists("game:active:ABC123") {
		t.Fatalf("expected keys removed")
	}
}
