package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

func TestGetItemFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cached := movie("Heat")
	if err := f.store.SaveItem(cached); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		err     error
		id      uuid.UUID
		wantErr error
	}{
		{"offline with cached copy", domain.ErrServerOffline, cached.ID, nil},
		{"not found with cached copy", nil, cached.ID, nil},
		{"server error with cached copy", &domain.ServerError{StatusCode: 500}, cached.ID, nil},
		{"not found without cached copy", nil, uuid.New(), domain.ErrItemNotFound},
		{"offline without cached copy", domain.ErrServerOffline, uuid.New(), domain.ErrServerOffline},
		{"auth failure with cached copy", domain.ErrAuthFailed, cached.ID, domain.ErrAuthFailed},
	}

	for _, tt := range tests {
		f.remote.SetError("GetItem", tt.err)
		got, err := f.repo.GetItem(ctx, tt.id)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got.ID != cached.ID || got.Name != "Heat" {
			t.Errorf("%s: got %+v", tt.name, got)
		}
	}
}

func TestGetItemRefreshesCachedCopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := movie("Heat")
	if err := f.store.SaveItem(m); err != nil {
		t.Fatal(err)
	}

	renamed := m
	renamed.Name = "Heat (1995)"
	renamed.UserData = domain.UserData{Played: true}
	uncached := movie("Ronin")
	f.remote.Add(renamed, uncached)

	if _, err := f.repo.GetItem(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	got, _, _ := f.store.GetItem(m.ID)
	if got.Name != "Heat (1995)" {
		t.Errorf("cached name = %q, want refreshed", got.Name)
	}
	if !f.userData(t, m.ID).Played {
		t.Error("cached user data not refreshed")
	}

	if _, err := f.repo.GetItem(ctx, uncached.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := f.store.GetItem(uncached.ID); ok {
		t.Error("uncached item was added to the cache")
	}
}

func TestTypedGetters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := movie("Heat")
	f.remote.Add(m)

	if _, err := f.repo.GetMovie(ctx, m.ID); err != nil {
		t.Errorf("GetMovie: %v", err)
	}
	if _, err := f.repo.GetEpisode(ctx, m.ID); !errors.Is(err, domain.ErrUnexpectedKind) {
		t.Errorf("GetEpisode on a movie: err = %v, want ErrUnexpectedKind", err)
	}
}

func TestGetEpisodesOfflineEmptyCache(t *testing.T) {
	f := newFixture(t)

	episodes, err := f.repo.GetEpisodes(context.Background(), domain.EpisodeQuery{
		SeriesID: uuid.New(),
		SeasonID: uuid.New(),
	}, true)
	if err != nil {
		t.Fatalf("GetEpisodes: %v", err)
	}
	if episodes == nil || len(episodes) != 0 {
		t.Errorf("episodes = %#v, want empty list", episodes)
	}
	if n := f.remote.CallCount(""); n != 0 {
		t.Errorf("made %d network calls in offline mode", n)
	}
}

func TestOfflineSeasonsAndEpisodesFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seriesID, seasonID := uuid.New(), uuid.New()

	season := domain.Item{ID: seasonID, Kind: domain.KindSeason, ServerID: testServerID, Name: "Season 1",
		Season: &domain.SeasonInfo{SeriesID: seriesID, IndexNumber: 1}}
	if err := f.store.SaveItem(season); err != nil {
		t.Fatal(err)
	}
	var ids []uuid.UUID
	for i := 3; i >= 1; i-- {
		ep := domain.Item{ID: uuid.New(), Kind: domain.KindEpisode, ServerID: testServerID, Name: "ep",
			Episode: &domain.EpisodeInfo{SeriesID: seriesID, SeasonID: seasonID, ParentIndexNumber: 1, IndexNumber: i}}
		if err := f.store.SaveItem(ep); err != nil {
			t.Fatal(err)
		}
		ids = append([]uuid.UUID{ep.ID}, ids...)
	}
	if _, err := f.store.MutateUserData(f.userID, ids[0], func(ud *domain.UserData) { ud.Played = true }); err != nil {
		t.Fatal(err)
	}

	seasons, err := f.repo.GetSeasons(ctx, seriesID, true)
	if err != nil || len(seasons) != 1 || seasons[0].ID != seasonID {
		t.Fatalf("GetSeasons = %+v, %v", seasons, err)
	}

	episodes, err := f.repo.GetEpisodes(ctx, domain.EpisodeQuery{SeriesID: seriesID, SeasonID: seasonID}, true)
	if err != nil || len(episodes) != 3 {
		t.Fatalf("GetEpisodes = %d items, %v", len(episodes), err)
	}
	for i, ep := range episodes {
		if ep.ID != ids[i] {
			t.Errorf("episode %d out of order", i)
		}
	}
	if !episodes[0].UserData.Played {
		t.Error("cached user data not attached")
	}

	// Series-wide query with a start item and limit
	episodes, _ = f.repo.GetEpisodes(ctx, domain.EpisodeQuery{SeriesID: seriesID, StartItemID: ids[1], Limit: 1}, true)
	if len(episodes) != 1 || episodes[0].ID != ids[1] {
		t.Errorf("windowed episodes = %+v", episodes)
	}

	if n := f.remote.CallCount(""); n != 0 {
		t.Errorf("made %d network calls in offline mode", n)
	}
}

func TestOnlineEpisodesPropagateErrors(t *testing.T) {
	f := newFixture(t)
	f.remote.SetOffline(true)

	_, err := f.repo.GetEpisodes(context.Background(), domain.EpisodeQuery{SeriesID: uuid.New()}, false)
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Errorf("err = %v, want ErrServerOffline", err)
	}
}

func TestGetItemsPaging(t *testing.T) {
	f := newFixture(t)
	parentID := uuid.New()
	for i := 0; i < 25; i++ {
		m := movie(string(rune('A' + i)))
		m.ParentID = parentID
		f.remote.Add(m)
	}

	pager := f.repo.GetItemsPaging(domain.ItemQuery{ParentID: parentID, SortBy: domain.SortByName})
	var names []string
	for item, err := range pager.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, item.Name)
	}
	if len(names) != 25 || names[0] != "A" || names[24] != "Y" {
		t.Errorf("paged names = %v", names)
	}
	if f.remote.CallCount("GetItems") != 3 {
		t.Errorf("GetItems called %d times, want 3 pages", f.remote.CallCount("GetItems"))
	}
}

func TestGetItemsRejectsUnknownSort(t *testing.T) {
	f := newFixture(t)
	if _, err := f.repo.GetItems(context.Background(), domain.ItemQuery{SortBy: "Bogus"}); err == nil {
		t.Error("expected an error for an unknown sort key")
	}
	if f.remote.CallCount("") != 0 {
		t.Error("invalid query reached the server")
	}
}

func TestGetLibrariesKeepsCollections(t *testing.T) {
	f := newFixture(t)
	f.remote.Add(domain.Item{ID: uuid.New(), Kind: domain.KindCollection, Name: "Movies",
		Collection: &domain.CollectionInfo{CollectionType: "movies"}})

	libs, err := f.repo.GetLibraries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 1 || libs[0].Name != "Movies" {
		t.Errorf("libraries = %+v", libs)
	}
}

func TestSearchFallsBackToCachedItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, m := range []domain.Item{movie("The Matrix"), movie("Heat")} {
		if err := f.store.SaveItem(m); err != nil {
			t.Fatal(err)
		}
	}

	f.remote.SetOffline(true)
	got, err := f.repo.GetSearchItems(ctx, "matrix")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "The Matrix" {
		t.Errorf("offline search = %+v", got)
	}

	f.remote.SetOffline(false)
	online := movie("Heat")
	f.remote.Add(online)
	got, err = f.repo.GetSearchItems(ctx, "Heat")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != online.ID {
		t.Errorf("online search = %+v", got)
	}
}
