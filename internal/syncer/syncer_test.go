package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/remotetest"
	"github.com/mmcdole/reel/internal/store"
)

type fixture struct {
	syncer *Syncer
	remote *remotetest.Fake
	store  *store.Store
	userID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "reel.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	remote := remotetest.New("http://media.local")
	userID := uuid.New()
	s := New(remote, st, domain.StaticSession{UserID: userID}, time.Hour, nil)
	return &fixture{syncer: s, remote: remote, store: st, userID: userID}
}

func (f *fixture) flag(t *testing.T, itemID uuid.UUID, apply func(*domain.UserData)) {
	t.Helper()
	_, err := f.store.MutateUserData(f.userID, itemID, func(ud *domain.UserData) {
		apply(ud)
		ud.ToBeSynced = true
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSyncOncePushesAndClears(t *testing.T) {
	f := newFixture(t)
	resumed, watched := uuid.New(), uuid.New()
	f.flag(t, resumed, func(ud *domain.UserData) {
		ud.Favorite = true
		ud.PlaybackPositionTicks = 1_000
	})
	f.flag(t, watched, func(ud *domain.UserData) { ud.Played = true })

	res, err := f.syncer.SyncOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Pending != 2 || res.Cleared != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}

	for method, want := range map[string]int{
		"MarkFavorite":          1,
		"UnmarkFavorite":        1,
		"MarkPlayed":            1,
		"MarkUnplayed":          1,
		"ReportPlaybackStopped": 1,
	} {
		if got := f.remote.CallCount(method); got != want {
			t.Errorf("%s called %d times, want %d", method, got, want)
		}
	}

	pending, _ := f.store.ListToBeSynced(f.userID)
	if len(pending) != 0 {
		t.Errorf("still pending: %+v", pending)
	}
}

func TestFailedPushKeepsFlag(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	f.flag(t, itemID, func(ud *domain.UserData) { ud.Favorite = true })
	f.remote.SetOffline(true)

	res, err := f.syncer.SyncOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Cleared != 0 {
		t.Errorf("result = %+v", res)
	}
	pending, _ := f.store.ListToBeSynced(f.userID)
	if len(pending) != 1 {
		t.Fatalf("pending = %+v, want row kept", pending)
	}

	// A later successful retry clears it
	f.remote.SetOffline(false)
	if res, _ := f.syncer.SyncOnce(context.Background()); res.Cleared != 1 {
		t.Errorf("retry result = %+v", res)
	}
}

// changingRemote mutates the row while its push is in flight
type changingRemote struct {
	*remotetest.Fake
	onPush func()
}

func (c *changingRemote) MarkFavorite(ctx context.Context, itemID uuid.UUID) error {
	c.onPush()
	return c.Fake.MarkFavorite(ctx, itemID)
}

func TestConcurrentChangeKeepsFlag(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	f.flag(t, itemID, func(ud *domain.UserData) { ud.Favorite = true })

	remote := &changingRemote{Fake: f.remote, onPush: func() {
		f.store.MutateUserData(f.userID, itemID, func(ud *domain.UserData) { ud.Played = true })
	}}
	s := New(remote, f.store, domain.StaticSession{UserID: f.userID}, time.Hour, nil)

	res, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Superseded != 1 || res.Cleared != 0 {
		t.Errorf("result = %+v", res)
	}
	ud, _, _ := f.store.GetUserData(f.userID, itemID)
	if !ud.ToBeSynced || !ud.Played {
		t.Errorf("user data = %+v, want newer change still flagged", ud)
	}
}

func TestAuthFailureStopsPass(t *testing.T) {
	f := newFixture(t)
	f.flag(t, uuid.New(), func(ud *domain.UserData) {})
	f.flag(t, uuid.New(), func(ud *domain.UserData) {})
	f.remote.SetError("UnmarkFavorite", domain.ErrAuthFailed)

	res, err := f.syncer.SyncOnce(context.Background())
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if res.Failed != 1 || f.remote.CallCount("UnmarkFavorite") != 1 {
		t.Errorf("pass continued after auth failure: %+v", res)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	f.flag(t, itemID, func(ud *domain.UserData) { ud.Played = true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.syncer.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for f.remote.CallCount("MarkPlayed") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
	if f.remote.CallCount("MarkPlayed") != 1 {
		t.Error("initial pass did not run")
	}
}
