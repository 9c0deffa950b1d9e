// Package remotetest provides an in-memory domain.RemoteClient for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jellyfin"
)

var _ domain.RemoteClient = (*Fake)(nil)

// Call records one network call made against the fake
type Call struct {
	Method string
	ItemID uuid.UUID
}

// Fake serves canned data and records every network call. URL builders are
// not network calls and are delegated to a real jellyfin.Client.
type Fake struct {
	mu sync.Mutex

	Items    map[uuid.UUID]domain.Item
	Playback map[uuid.UUID]domain.PlaybackInfo
	Segments map[uuid.UUID]map[string]domain.RawSegment
	Tiles    map[string][]byte
	Info     domain.SystemInfo
	UserCfg  domain.UserConfiguration

	// Err fails every network call when set; Errs fails single methods
	Err  error
	Errs map[string]error

	calls        []Call
	playbackReqs []domain.PlaybackInfoRequest
	streams      []domain.StreamParams
	urls         *jellyfin.Client
}

// New creates an empty fake whose URL builders target baseURL
func New(baseURL string) *Fake {
	return &Fake{
		Items:    make(map[uuid.UUID]domain.Item),
		Playback: make(map[uuid.UUID]domain.PlaybackInfo),
		Segments: make(map[uuid.UUID]map[string]domain.RawSegment),
		Tiles:    make(map[string][]byte),
		Errs:     make(map[string]error),
		urls:     jellyfin.NewClient(baseURL, "token", uuid.Nil, jellyfin.Device{ID: "fake"}, nil),
	}
}

// Add stores items served by GetItem and the list calls
func (f *Fake) Add(items ...domain.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.Items[item.ID] = item
	}
}

// SetError sets or clears the error returned by one method
func (f *Fake) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errs, method)
		return
	}
	f.Errs[method] = err
}

// SetOffline makes every network call fail with domain.ErrServerOffline
func (f *Fake) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offline {
		f.Err = domain.ErrServerOffline
	} else {
		f.Err = nil
	}
}

// Calls returns a copy of the recorded network calls
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns the number of calls to method, or all calls when method is empty
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			n++
		}
	}
	return n
}

// PlaybackRequests returns the posted playback-info requests
func (f *Fake) PlaybackRequests() []domain.PlaybackInfoRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PlaybackInfoRequest(nil), f.playbackReqs...)
}

// StreamParams returns the params passed to the URL builders
func (f *Fake) StreamParams() []domain.StreamParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.StreamParams(nil), f.streams...)
}

// record logs a call and returns the error configured for it
func (f *Fake) record(method string, itemID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, ItemID: itemID})
	if err, ok := f.Errs[method]; ok {
		return err
	}
	return f.Err
}

func (f *Fake) filter(keep func(domain.Item) bool) []domain.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Item
	for _, item := range f.Items {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Episode != nil && b.Episode != nil && a.Episode.IndexNumber != b.Episode.IndexNumber {
			return a.Episode.IndexNumber < b.Episode.IndexNumber
		}
		if a.Season != nil && b.Season != nil && a.Season.IndexNumber != b.Season.IndexNumber {
			return a.Season.IndexNumber < b.Season.IndexNumber
		}
		return a.Name < b.Name
	})
	return out
}

func (f *Fake) GetPublicSystemInfo(ctx context.Context) (domain.SystemInfo, error) {
	if err := f.record("GetPublicSystemInfo", uuid.Nil); err != nil {
		return domain.SystemInfo{}, err
	}
	return f.Info, nil
}

func (f *Fake) GetUserViews(ctx context.Context) ([]domain.Item, error) {
	if err := f.record("GetUserViews", uuid.Nil); err != nil {
		return nil, err
	}
	return f.filter(func(i domain.Item) bool { return i.Kind == domain.KindCollection }), nil
}

func (f *Fake) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	if err := f.record("GetItem", itemID); err != nil {
		return domain.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.Items[itemID]
	if !ok {
		return domain.Item{}, fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
	}
	return item, nil
}

// GetItems filters by parent, type and search term, then applies the window
func (f *Fake) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, int, error) {
	if err := f.record("GetItems", q.ParentID); err != nil {
		return nil, 0, err
	}
	all := f.filter(func(i domain.Item) bool {
		if q.ParentID != uuid.Nil && i.ParentID != q.ParentID {
			return false
		}
		if q.SearchTerm != "" && i.Name != q.SearchTerm {
			return false
		}
		if len(q.IncludeTypes) == 0 {
			return true
		}
		for _, k := range q.IncludeTypes {
			if i.Kind == k {
				return true
			}
		}
		return false
	})

	total := len(all)
	start := q.StartIndex
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return all[start:end], total, nil
}

func (f *Fake) GetResumeItems(ctx context.Context, limit int, types []domain.ItemKind) ([]domain.Item, error) {
	if err := f.record("GetResumeItems", uuid.Nil); err != nil {
		return nil, err
	}
	return limitItems(f.filter(func(i domain.Item) bool { return i.UserData.PlaybackPositionTicks > 0 }), limit), nil
}

func (f *Fake) GetLatestMedia(ctx context.Context, parentID uuid.UUID, limit int) ([]domain.Item, error) {
	if err := f.record("GetLatestMedia", parentID); err != nil {
		return nil, err
	}
	return limitItems(f.filter(func(i domain.Item) bool { return i.ParentID == parentID }), limit), nil
}

func (f *Fake) GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]domain.Item, error) {
	if err := f.record("GetSeasons", seriesID); err != nil {
		return nil, err
	}
	return f.filter(func(i domain.Item) bool { return i.Season != nil && i.Season.SeriesID == seriesID }), nil
}

func (f *Fake) GetNextUp(ctx context.Context, seriesID uuid.UUID, limit int) ([]domain.Item, error) {
	if err := f.record("GetNextUp", seriesID); err != nil {
		return nil, err
	}
	next := f.filter(func(i domain.Item) bool {
		return i.Episode != nil && !i.UserData.Played && (seriesID == uuid.Nil || i.Episode.SeriesID == seriesID)
	})
	return limitItems(next, limit), nil
}

func (f *Fake) GetEpisodes(ctx context.Context, q domain.EpisodeQuery) ([]domain.Item, error) {
	if err := f.record("GetEpisodes", q.SeasonID); err != nil {
		return nil, err
	}
	return limitItems(f.filter(func(i domain.Item) bool {
		return i.Episode != nil && i.Episode.SeriesID == q.SeriesID &&
			(q.SeasonID == uuid.Nil || i.Episode.SeasonID == q.SeasonID)
	}), q.Limit), nil
}

func (f *Fake) PostPlaybackInfo(ctx context.Context, itemID uuid.UUID, req domain.PlaybackInfoRequest) (domain.PlaybackInfo, error) {
	err := f.record("PostPlaybackInfo", itemID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playbackReqs = append(f.playbackReqs, req)
	if err != nil {
		return domain.PlaybackInfo{}, err
	}
	info, ok := f.Playback[itemID]
	if !ok {
		return domain.PlaybackInfo{}, fmt.Errorf("playback info %s: %w", itemID, domain.ErrItemNotFound)
	}
	return info, nil
}

func (f *Fake) StreamURL(p domain.StreamParams) (string, error) {
	f.mu.Lock()
	f.streams = append(f.streams, p)
	f.mu.Unlock()
	return f.urls.StreamURL(p)
}

func (f *Fake) MasterPlaylistURL(p domain.StreamParams) (string, error) {
	f.mu.Lock()
	f.streams = append(f.streams, p)
	f.mu.Unlock()
	return f.urls.MasterPlaylistURL(p)
}

func (f *Fake) StopEncodingProcess(ctx context.Context, deviceID, playSessionID string) error {
	return f.record("StopEncodingProcess", uuid.Nil)
}

func (f *Fake) GetSegments(ctx context.Context, itemID uuid.UUID) (map[string]domain.RawSegment, error) {
	if err := f.record("GetSegments", itemID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	segs, ok := f.Segments[itemID]
	if !ok {
		return nil, fmt.Errorf("segments %s: %w", itemID, domain.ErrItemNotFound)
	}
	return segs, nil
}

// TileKey is the Tiles map key for one trickplay tile
func TileKey(itemID uuid.UUID, width, index int) string {
	return fmt.Sprintf("%s/%d/%d", itemID, width, index)
}

func (f *Fake) GetTrickplayTile(ctx context.Context, itemID uuid.UUID, width, index int) ([]byte, error) {
	if err := f.record("GetTrickplayTile", itemID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tile, ok := f.Tiles[TileKey(itemID, width, index)]
	if !ok {
		return nil, fmt.Errorf("trickplay tile: %w", domain.ErrItemNotFound)
	}
	return tile, nil
}

func (f *Fake) PostCapabilities(ctx context.Context) error {
	return f.record("PostCapabilities", uuid.Nil)
}

func (f *Fake) ReportPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	return f.record("ReportPlaybackStart", itemID)
}

func (f *Fake) ReportPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, isPaused bool) error {
	return f.record("ReportPlaybackProgress", itemID)
}

func (f *Fake) ReportPlaybackStopped(ctx context.Context, itemID uuid.UUID, positionTicks int64) error {
	return f.record("ReportPlaybackStopped", itemID)
}

func (f *Fake) MarkFavorite(ctx context.Context, itemID uuid.UUID) error {
	return f.record("MarkFavorite", itemID)
}

func (f *Fake) UnmarkFavorite(ctx context.Context, itemID uuid.UUID) error {
	return f.record("UnmarkFavorite", itemID)
}

func (f *Fake) MarkPlayed(ctx context.Context, itemID uuid.UUID) error {
	return f.record("MarkPlayed", itemID)
}

func (f *Fake) MarkUnplayed(ctx context.Context, itemID uuid.UUID) error {
	return f.record("MarkUnplayed", itemID)
}

func (f *Fake) UpdateDeviceOptions(ctx context.Context, deviceID, customName string) error {
	return f.record("UpdateDeviceOptions", uuid.Nil)
}

func (f *Fake) GetUserConfiguration(ctx context.Context) (domain.UserConfiguration, error) {
	if err := f.record("GetUserConfiguration", uuid.Nil); err != nil {
		return domain.UserConfiguration{}, err
	}
	return f.UserCfg, nil
}

func limitItems(items []domain.Item, limit int) []domain.Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
