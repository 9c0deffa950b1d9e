package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

const (
	itemFields    = "Overview,Genres,OriginalTitle,CanDownload,CanDelete,ChildCount,DateCreated"
	detailFields  = itemFields + ",MediaSources,MediaStreams"
	episodeFields = "Overview,MediaSources,MediaStreams,CanDownload,CanDelete"
)

// GetPublicSystemInfo returns the server's unauthenticated identity
func (c *Client) GetPublicSystemInfo(ctx context.Context) (domain.SystemInfo, error) {
	var info SystemInfo
	if err := c.getJSON(ctx, "/System/Info/Public", nil, &info); err != nil {
		return domain.SystemInfo{}, err
	}
	return mapSystemInfo(info), nil
}

// CheckProduct rejects servers that answer /System/Info/Public but are not Jellyfin
func CheckProduct(info domain.SystemInfo) error {
	if info.ProductName == "" || strings.Contains(strings.ToLower(info.ProductName), "jellyfin") {
		return nil
	}
	return fmt.Errorf("not a Jellyfin server (ProductName: %s)", info.ProductName)
}

// GetUserViews returns the user's top-level libraries (Views)
func (c *Client) GetUserViews(ctx context.Context) ([]domain.Item, error) {
	var resp ItemsResponse
	if err := c.getJSON(ctx, c.userPath("/Views"), nil, &resp); err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetItem returns detailed metadata for a specific item
func (c *Client) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	query := url.Values{}
	query.Set("Fields", detailFields)

	var item Item
	if err := c.getJSON(ctx, c.userPath("/Items/%s", itemID), query, &item); err != nil {
		return domain.Item{}, err
	}
	return MapItem(item), nil
}

// GetItems returns one window of items matching q together with the server's total count
func (c *Client) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, int, error) {
	query := url.Values{}
	query.Set("Fields", itemFields)
	if q.ParentID != uuid.Nil {
		query.Set("ParentId", q.ParentID.String())
	}
	if types := typeNames(q.IncludeTypes); len(types) > 0 {
		query.Set("IncludeItemTypes", strings.Join(types, ","))
	}
	if q.Recursive {
		query.Set("Recursive", "true")
	}
	if q.SortBy != "" {
		query.Set("SortBy", string(q.SortBy))
	}
	if q.SortOrder != "" {
		query.Set("SortOrder", string(q.SortOrder))
	}
	if q.StartIndex > 0 {
		query.Set("StartIndex", strconv.Itoa(q.StartIndex))
	}
	if q.Limit > 0 {
		query.Set("Limit", strconv.Itoa(q.Limit))
	}
	if len(q.Filters) > 0 {
		filters := make([]string, len(q.Filters))
		for i, f := range q.Filters {
			filters[i] = string(f)
		}
		query.Set("Filters", strings.Join(filters, ","))
	}
	if len(q.PersonIDs) > 0 {
		ids := make([]string, len(q.PersonIDs))
		for i, id := range q.PersonIDs {
			ids[i] = id.String()
		}
		query.Set("PersonIds", strings.Join(ids, ","))
	}
	if q.SearchTerm != "" {
		query.Set("SearchTerm", q.SearchTerm)
	}

	var resp ItemsResponse
	if err := c.getJSON(ctx, c.userPath("/Items"), query, &resp); err != nil {
		return nil, 0, err
	}
	return MapItems(resp.Items), resp.TotalRecordCount, nil
}

// GetResumeItems returns partially watched items
func (c *Client) GetResumeItems(ctx context.Context, limit int, types []domain.ItemKind) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("Limit", strconv.Itoa(limit))
	query.Set("MediaTypes", "Video")
	query.Set("Fields", itemFields)
	if names := typeNames(types); len(names) > 0 {
		query.Set("IncludeItemTypes", strings.Join(names, ","))
	}

	var resp ItemsResponse
	if err := c.getJSON(ctx, c.userPath("/Items/Resume"), query, &resp); err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetLatestMedia returns recently added items under a library
func (c *Client) GetLatestMedia(ctx context.Context, parentID uuid.UUID, limit int) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("Limit", strconv.Itoa(limit))
	query.Set("Fields", itemFields)
	if parentID != uuid.Nil {
		query.Set("ParentId", parentID.String())
	}

	// This endpoint answers with a bare array
	var items []Item
	if err := c.getJSON(ctx, c.userPath("/Items/Latest"), query, &items); err != nil {
		return nil, err
	}
	return MapItems(items), nil
}

// GetSeasons returns all seasons for a TV show
func (c *Client) GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("UserId", c.userID.String())
	query.Set("Fields", "Overview,ChildCount")

	var resp ItemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/Shows/%s/Seasons", seriesID), query, &resp); err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetNextUp returns the next unwatched episodes, optionally narrowed to one series
func (c *Client) GetNextUp(ctx context.Context, seriesID uuid.UUID, limit int) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("UserId", c.userID.String())
	query.Set("Limit", strconv.Itoa(limit))
	query.Set("EnableResumable", "false")
	query.Set("Fields", episodeFields)
	if seriesID != uuid.Nil {
		query.Set("SeriesId", seriesID.String())
	}

	var resp ItemsResponse
	if err := c.getJSON(ctx, "/Shows/NextUp", query, &resp); err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetEpisodes returns the episodes of a series, optionally narrowed to one season
func (c *Client) GetEpisodes(ctx context.Context, q domain.EpisodeQuery) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("UserId", c.userID.String())
	fields := episodeFields
	if len(q.Fields) > 0 {
		fields = strings.Join(q.Fields, ",")
	}
	query.Set("Fields", fields)
	if q.SeasonID != uuid.Nil {
		query.Set("SeasonId", q.SeasonID.String())
	}
	if q.StartItemID != uuid.Nil {
		query.Set("StartItemId", q.StartItemID.String())
	}
	if q.Limit > 0 {
		query.Set("Limit", strconv.Itoa(q.Limit))
	}

	var resp ItemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/Shows/%s/Episodes", q.SeriesID), query, &resp); err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetUserConfiguration returns the current user's server-side preferences
func (c *Client) GetUserConfiguration(ctx context.Context) (domain.UserConfiguration, error) {
	var user User
	if err := c.getJSON(ctx, "/Users/Me", nil, &user); err != nil {
		return domain.UserConfiguration{}, err
	}
	return mapUserConfiguration(user.Configuration), nil
}

// UpdateDeviceOptions sets the display name of a registered device
func (c *Client) UpdateDeviceOptions(ctx context.Context, deviceID, customName string) error {
	query := url.Values{}
	query.Set("id", deviceID)
	return c.send(ctx, http.MethodPost, "/Devices/Options", query, DeviceOptions{CustomName: customName})
}
