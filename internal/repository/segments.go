package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/metrics"
)

// GetSegments returns the intro and credits segments of an item. Once cached,
// segments are served from the cache and never fetched again. Remote errors
// yield an empty list.
func (r *Repository) GetSegments(ctx context.Context, itemID uuid.UUID) []domain.Segment {
	release, err := r.acquire(ctx)
	if err != nil {
		return []domain.Segment{}
	}
	defer release()

	cached, err := r.store.GetSegments(itemID)
	if err != nil {
		r.logger.Warn("failed to read cached segments", "itemID", itemID, "error", err)
	}
	if len(cached) > 0 {
		metrics.SegmentCacheHits.Inc()
		return cached
	}

	raw, err := r.remote.GetSegments(ctx, itemID)
	observe("GetSegments", err)
	if err != nil {
		r.logger.Debug("no segments available", "itemID", itemID, "error", err)
		return []domain.Segment{}
	}

	segments := make([]domain.Segment, 0, len(raw))
	for label, s := range raw {
		segments = append(segments, domain.Segment{
			ItemID:    itemID,
			Type:      domain.ClassifySegment(label),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			ShowAt:    s.ShowAt,
			HideAt:    s.HideAt,
		})
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})

	if len(segments) > 0 {
		if err := r.store.SaveSegments(itemID, segments); err != nil {
			r.logger.Warn("failed to cache segments", "itemID", itemID, "error", err)
		}
	}
	return segments
}

// GetTrickplayData returns one trickplay tile, preferring the local cache.
// It returns nil when neither the cache nor the server has the tile.
func (r *Repository) GetTrickplayData(ctx context.Context, itemID uuid.UUID, width, index int) []byte {
	release, err := r.acquire(ctx)
	if err != nil {
		return nil
	}
	defer release()

	if r.tiles != nil {
		if data, err := r.tiles.Get(itemID, width, index); err == nil {
			return data
		}
	}

	data, err := r.remote.GetTrickplayTile(ctx, itemID, width, index)
	observe("GetTrickplayData", err)
	if err != nil {
		r.logger.Debug("trickplay tile unavailable", "itemID", itemID, "width", width, "index", index, "error", err)
		return nil
	}
	return data
}
