package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/paging"
	"github.com/mmcdole/reel/internal/search"
)

const (
	resumeLimit = 12
	latestLimit = 16
	nextUpLimit = 24
)

// searchKinds are the kinds returned by favourites and search
var searchKinds = []domain.ItemKind{domain.KindMovie, domain.KindShow, domain.KindEpisode}

// GetItem fetches an item from the server, falling back to the cached copy
// when the server is unreachable or reports it missing. Local user state that
// has not been synced yet wins over the server's.
func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	defer release()
	return r.getItem(ctx, sess, itemID)
}

func (r *Repository) getItem(ctx context.Context, sess domain.Session, itemID uuid.UUID) (domain.Item, error) {
	item, err := withFallback(r.logger, "GetItem",
		func() (domain.Item, error) {
			item, err := r.remote.GetItem(ctx, itemID)
			if err != nil {
				return domain.Item{}, err
			}
			r.refreshCached(sess.UserID, item)
			return item, nil
		},
		func() (domain.Item, bool, error) {
			item, ok, err := r.store.GetItem(itemID)
			if ok {
				item.UserData = r.cachedUserData(sess.UserID, itemID)
			}
			return item, ok, err
		},
	)
	if err != nil {
		return domain.Item{}, err
	}
	r.mergeUserData(sess.UserID, &item)
	return item, nil
}

// getKind fetches an item and checks its variant
func (r *Repository) getKind(ctx context.Context, itemID uuid.UUID, kind domain.ItemKind) (domain.Item, error) {
	item, err := r.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item.Kind != kind {
		return domain.Item{}, fmt.Errorf("item %s is a %s, not a %s: %w", itemID, item.Kind, kind, domain.ErrUnexpectedKind)
	}
	return item, nil
}

// GetMovie fetches a movie by id
func (r *Repository) GetMovie(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return r.getKind(ctx, itemID, domain.KindMovie)
}

// GetShow fetches a series by id
func (r *Repository) GetShow(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return r.getKind(ctx, itemID, domain.KindShow)
}

// GetSeason fetches a season by id
func (r *Repository) GetSeason(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return r.getKind(ctx, itemID, domain.KindSeason)
}

// GetEpisode fetches an episode by id
func (r *Repository) GetEpisode(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return r.getKind(ctx, itemID, domain.KindEpisode)
}

// GetSeasons lists the seasons of a series. With offline set only the local
// cache is consulted and an empty cache yields an empty list.
func (r *Repository) GetSeasons(ctx context.Context, seriesID uuid.UUID, offline bool) ([]domain.Item, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if offline {
		return r.cachedChildren(sess.UserID, seriesID, domain.KindSeason), nil
	}

	seasons, err := r.remote.GetSeasons(ctx, seriesID)
	observe("GetSeasons", err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seasons of %s: %w", seriesID, err)
	}
	r.mergeAll(sess.UserID, seasons)
	return seasons, nil
}

// GetEpisodes lists the episodes of a season. With offline set only the
// local cache is consulted and an empty cache yields an empty list.
func (r *Repository) GetEpisodes(ctx context.Context, q domain.EpisodeQuery, offline bool) ([]domain.Item, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if offline {
		return r.cachedEpisodes(sess.UserID, q), nil
	}

	episodes, err := r.remote.GetEpisodes(ctx, q)
	observe("GetEpisodes", err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch episodes of %s: %w", q.SeriesID, err)
	}
	r.mergeAll(sess.UserID, episodes)
	return episodes, nil
}

func (r *Repository) cachedEpisodes(userID uuid.UUID, q domain.EpisodeQuery) []domain.Item {
	var episodes []domain.Item
	if q.SeasonID != uuid.Nil {
		episodes = r.cachedChildren(userID, q.SeasonID, domain.KindEpisode)
	} else {
		for _, season := range r.cachedChildren(userID, q.SeriesID, domain.KindSeason) {
			episodes = append(episodes, r.cachedChildren(userID, season.ID, domain.KindEpisode)...)
		}
	}

	if q.StartItemID != uuid.Nil {
		for i, ep := range episodes {
			if ep.ID == q.StartItemID {
				episodes = episodes[i:]
				break
			}
		}
	}
	if q.Limit > 0 && len(episodes) > q.Limit {
		episodes = episodes[:q.Limit]
	}
	if episodes == nil {
		episodes = []domain.Item{}
	}
	return episodes
}

// cachedChildren reads cached children of one kind. Cache errors degrade to an empty list.
func (r *Repository) cachedChildren(userID, parentID uuid.UUID, kind domain.ItemKind) []domain.Item {
	items, err := r.store.GetChildren(parentID, kind)
	if err != nil {
		r.logger.Warn("failed to read cached children", "parentID", parentID, "kind", kind, "error", err)
		return []domain.Item{}
	}
	for i := range items {
		items[i].UserData = r.cachedUserData(userID, items[i].ID)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items
}

// GetUserViews lists the user's top level views
func (r *Repository) GetUserViews(ctx context.Context) ([]domain.Item, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	views, err := r.remote.GetUserViews(ctx)
	observe("GetUserViews", err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user views: %w", err)
	}
	return views, nil
}

// GetLibraries lists the user's media libraries
func (r *Repository) GetLibraries(ctx context.Context) ([]domain.Item, error) {
	views, err := r.GetUserViews(ctx)
	if err != nil {
		return nil, err
	}
	libraries := make([]domain.Item, 0, len(views))
	for _, v := range views {
		if v.Kind == domain.KindCollection {
			libraries = append(libraries, v)
		}
	}
	return libraries, nil
}

// GetItems lists items matching q
func (r *Repository) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	if q.SortBy != "" && !q.SortBy.Valid() {
		return nil, fmt.Errorf("unknown sort key %q", q.SortBy)
	}
	return r.list(ctx, "GetItems", func(ctx context.Context) ([]domain.Item, error) {
		items, _, err := r.remote.GetItems(ctx, q)
		return items, err
	})
}

// GetItemsPaging returns a pager that fetches q one window at a time
func (r *Repository) GetItemsPaging(q domain.ItemQuery) *paging.Pager[domain.Item] {
	return paging.New(func(ctx context.Context, w domain.PagingWindow) ([]domain.Item, error) {
		return r.GetItems(ctx, q.Window(w))
	}, paging.WithLogger(r.logger))
}

// GetPersonItems lists items featuring any of personIDs
func (r *Repository) GetPersonItems(ctx context.Context, personIDs []uuid.UUID, kinds []domain.ItemKind, recursive bool) ([]domain.Item, error) {
	return r.GetItems(ctx, domain.ItemQuery{
		PersonIDs:    personIDs,
		IncludeTypes: kinds,
		Recursive:    recursive,
	})
}

// GetFavoriteItems lists favourite movies, shows and episodes
func (r *Repository) GetFavoriteItems(ctx context.Context) ([]domain.Item, error) {
	return r.GetItems(ctx, domain.ItemQuery{
		Filters:      []domain.ItemFilter{domain.FilterIsFavorite},
		IncludeTypes: searchKinds,
		Recursive:    true,
	})
}

// GetSearchItems searches the server. When the server cannot be reached the
// cached items are searched instead. Results are ranked by title closeness.
func (r *Repository) GetSearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := withFallback(r.logger, "GetSearchItems",
		func() ([]domain.Item, error) {
			items, _, err := r.remote.GetItems(ctx, domain.ItemQuery{
				SearchTerm:   query,
				IncludeTypes: searchKinds,
				Recursive:    true,
			})
			return items, err
		},
		func() ([]domain.Item, bool, error) {
			items, err := r.search.SearchLocal(sess.ServerID, query, searchKinds)
			return items, err == nil, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}
	r.mergeAll(sess.UserID, items)
	return search.Rank(items, query), nil
}

// GetResumeItems lists movies and episodes with a resume position
func (r *Repository) GetResumeItems(ctx context.Context) ([]domain.Item, error) {
	return r.list(ctx, "GetResumeItems", func(ctx context.Context) ([]domain.Item, error) {
		return r.remote.GetResumeItems(ctx, resumeLimit, []domain.ItemKind{domain.KindMovie, domain.KindEpisode})
	})
}

// GetLatestMedia lists recently added items under parentID
func (r *Repository) GetLatestMedia(ctx context.Context, parentID uuid.UUID) ([]domain.Item, error) {
	return r.list(ctx, "GetLatestMedia", func(ctx context.Context) ([]domain.Item, error) {
		return r.remote.GetLatestMedia(ctx, parentID, latestLimit)
	})
}

// GetNextUp lists the next unwatched episodes. A nil seriesID covers every series.
func (r *Repository) GetNextUp(ctx context.Context, seriesID uuid.UUID) ([]domain.Item, error) {
	return r.list(ctx, "GetNextUp", func(ctx context.Context) ([]domain.Item, error) {
		return r.remote.GetNextUp(ctx, seriesID, nextUpLimit)
	})
}

// list runs a remote-only list call and merges pending local user state into the result
func (r *Repository) list(ctx context.Context, op string, fetch func(context.Context) ([]domain.Item, error)) ([]domain.Item, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := fetch(ctx)
	observe(op, err)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	r.mergeAll(sess.UserID, items)
	return items, nil
}

// mergeUserData overrides the server's user state with local state that is still waiting to be synced
func (r *Repository) mergeUserData(userID uuid.UUID, item *domain.Item) {
	local, ok, err := r.store.GetUserData(userID, item.ID)
	if err != nil {
		r.logger.Warn("failed to read local user data", "itemID", item.ID, "error", err)
		return
	}
	if !ok || !local.ToBeSynced {
		return
	}
	item.UserData.Favorite = local.Favorite
	item.UserData.Played = local.Played
	item.UserData.PlaybackPositionTicks = local.PlaybackPositionTicks
	item.UserData.ToBeSynced = true
	item.UserData.Revision = local.Revision
}

func (r *Repository) mergeAll(userID uuid.UUID, items []domain.Item) {
	for i := range items {
		r.mergeUserData(userID, &items[i])
	}
}

func (r *Repository) cachedUserData(userID, itemID uuid.UUID) domain.UserData {
	ud, _, err := r.store.GetUserData(userID, itemID)
	if err != nil {
		r.logger.Warn("failed to read local user data", "itemID", itemID, "error", err)
	}
	return ud
}

// refreshCached updates the cached copy of an item the server just returned.
// Items that are not cached stay uncached.
func (r *Repository) refreshCached(userID uuid.UUID, item domain.Item) {
	updated, err := r.store.UpdateItem(item)
	if err != nil {
		r.logger.Warn("failed to refresh cached item", "itemID", item.ID, "error", err)
		return
	}
	if !updated {
		return
	}

	remote := item.UserData
	_, err = r.store.MutateUserData(userID, item.ID, func(ud *domain.UserData) {
		if ud.ToBeSynced {
			return
		}
		ud.Favorite = remote.Favorite
		ud.Played = remote.Played
		ud.PlaybackPositionTicks = remote.PlaybackPositionTicks
		ud.PlayCount = remote.PlayCount
		ud.UnplayedItemCount = remote.UnplayedItemCount
	})
	if err != nil {
		r.logger.Warn("failed to refresh cached user data", "itemID", item.ID, "userID", userID, "error", err)
	}
}
