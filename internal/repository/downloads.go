package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

// Hooks used by the download scheduler. The store only holds downloaded
// items, so GetItem refreshes cached rows but never adds new ones.

// GetDownloads lists the downloaded movies and shows of the current server
func (r *Repository) GetDownloads(ctx context.Context) ([]domain.Item, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var items []domain.Item
	for _, kind := range []domain.ItemKind{domain.KindMovie, domain.KindShow} {
		cached, err := r.store.ListByServer(sess.ServerID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list downloaded %s items: %w", kind, err)
		}
		for i := range cached {
			cached[i].UserData = r.cachedUserData(sess.UserID, cached[i].ID)
		}
		items = append(items, cached...)
	}
	return items, nil
}

// SaveDownloadedItem caches an item row for offline use
func (r *Repository) SaveDownloadedItem(ctx context.Context, item domain.Item) error {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if item.ServerID == "" {
		item.ServerID = sess.ServerID
	}
	if err := r.store.SaveItem(item); err != nil {
		return fmt.Errorf("failed to save downloaded item %s: %w", item.ID, err)
	}
	if _, err := r.store.MutateUserData(sess.UserID, item.ID, func(ud *domain.UserData) {
		if ud.ToBeSynced {
			return
		}
		ud.Favorite = item.UserData.Favorite
		ud.Played = item.UserData.Played
		ud.PlaybackPositionTicks = item.UserData.PlaybackPositionTicks
		ud.PlayCount = item.UserData.PlayCount
	}); err != nil {
		return fmt.Errorf("failed to save user data for %s: %w", item.ID, err)
	}
	return nil
}

// InsertLocalSource records a downloaded source for an item
func (r *Repository) InsertLocalSource(ctx context.Context, src domain.Source) error {
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := r.store.SaveSource(src); err != nil {
		return fmt.Errorf("failed to save local source %s: %w", src.ID, err)
	}
	return nil
}

// MarkSourceDownloaded marks a local source as fully downloaded at path
func (r *Repository) MarkSourceDownloaded(ctx context.Context, itemID uuid.UUID, sourceID, path string) error {
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := r.store.MarkSourceDownloaded(itemID, sourceID, path); err != nil {
		return fmt.Errorf("failed to mark source %s downloaded: %w", sourceID, err)
	}
	return nil
}

// SaveSegments caches the segments of a downloaded item
func (r *Repository) SaveSegments(ctx context.Context, itemID uuid.UUID, segments []domain.Segment) error {
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return r.store.SaveSegments(itemID, segments)
}

// SaveTrickplayTile stores a downloaded trickplay tile
func (r *Repository) SaveTrickplayTile(ctx context.Context, itemID uuid.UUID, width, index int, data []byte) error {
	if r.tiles == nil {
		return nil
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return r.tiles.Put(itemID, width, index, data)
}

// DeleteDownload removes a downloaded item with its sources, segments and tiles
func (r *Repository) DeleteDownload(ctx context.Context, itemID uuid.UUID) error {
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := r.store.DeleteItem(itemID); err != nil {
		return fmt.Errorf("failed to delete download %s: %w", itemID, err)
	}
	if r.tiles != nil {
		if err := r.tiles.Remove(itemID); err != nil {
			r.logger.Warn("failed to remove trickplay tiles", "itemID", itemID, "error", err)
		}
	}
	return nil
}
