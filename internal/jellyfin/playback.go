package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

var errNoItemID = errors.New("stream url requires an item id")

// supportedCommands are advertised to the server for remote control
var supportedCommands = []string{
	"VolumeUp",
	"VolumeDown",
	"ToggleMute",
	"SetAudioStreamIndex",
	"SetSubtitleStreamIndex",
	"Mute",
	"Unmute",
	"SetVolume",
	"DisplayMessage",
	"Play",
	"PlayState",
	"PlayNext",
	"PlayMediaSource",
}

// PostPlaybackInfo negotiates playable sources for an item given a device profile.
// The response is returned as the server sent it.
func (c *Client) PostPlaybackInfo(ctx context.Context, itemID uuid.UUID, req domain.PlaybackInfoRequest) (domain.PlaybackInfo, error) {
	userID := req.UserID
	if userID == uuid.Nil {
		userID = c.userID
	}
	body := PlaybackInfoRequest{
		UserID:               userID.String(),
		MaxStreamingBitrate:  req.MaxStreamingBitrate,
		DeviceProfile:        req.DeviceProfile,
		EnableTranscoding:    req.EnableTranscoding,
		EnableDirectPlay:     req.EnableDirectPlay,
		EnableDirectStream:   req.EnableDirectStream,
		AutoOpenLiveStream:   req.AutoOpenLiveStream,
		AllowAudioStreamCopy: req.AllowAudioStreamCopy,
		AllowVideoStreamCopy: req.AllowVideoStreamCopy,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/Items/%s/PlaybackInfo", itemID), nil, body)
	if err != nil {
		return domain.PlaybackInfo{}, err
	}

	var resp PlaybackInfoResponse
	if err := unmarshal(respBody, &resp); err != nil {
		return domain.PlaybackInfo{}, err
	}

	return domain.PlaybackInfo{
		Sources:       MapSources(itemID, resp.MediaSources),
		PlaySessionID: resp.PlaySessionID,
		ErrorCode:     resp.ErrorCode,
	}, nil
}

// StreamURL builds a /Videos/{id}/stream URL. A container in p selects stream.{container}.
func (c *Client) StreamURL(p domain.StreamParams) (string, error) {
	if p.ItemID == uuid.Nil {
		return "", errNoItemID
	}
	path := fmt.Sprintf("/Videos/%s/stream", p.ItemID)
	if p.Container != "" {
		path += "." + p.Container
	}
	return c.buildURL(path, streamQuery(p, false))
}

// MasterPlaylistURL builds the HLS master playlist URL for a transcoded stream
func (c *Client) MasterPlaylistURL(p domain.StreamParams) (string, error) {
	if p.ItemID == uuid.Nil {
		return "", errNoItemID
	}
	return c.buildURL(fmt.Sprintf("/Videos/%s/master.m3u8", p.ItemID), streamQuery(p, true))
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("failed to build stream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("failed to build stream url: invalid base url %q", c.baseURL)
	}
	if c.token != "" {
		query.Set("api_key", c.token)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// streamQuery encodes p, omitting zero numbers and empty strings
func streamQuery(p domain.StreamParams, master bool) url.Values {
	q := url.Values{}
	q.Set("static", strconv.FormatBool(p.Static))

	setString := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	setInt := func(key string, value int64) {
		if value != 0 {
			q.Set(key, strconv.FormatInt(value, 10))
		}
	}

	setString("deviceId", p.DeviceID)
	setString("mediaSourceId", p.MediaSourceID)
	setString("playSessionId", p.PlaySessionID)
	setString("videoCodec", p.VideoCodec)
	setString("audioCodec", p.AudioCodec)
	setInt("videoBitRate", int64(p.VideoBitrate))
	setInt("audioBitRate", int64(p.AudioBitrate))
	setInt("maxHeight", int64(p.MaxHeight))
	setInt("startTimeTicks", p.StartTimeTicks)
	if p.CopyTimestamps {
		q.Set("copyTimestamps", "true")
	}
	setString("subtitleMethod", string(p.SubtitleMethod))
	setString("context", string(p.Context))
	setString("segmentContainer", p.SegmentContainer)
	setString("transcodeReasons", p.TranscodeReasons)
	if master {
		q.Set("enableAdaptiveBitrateStreaming", strconv.FormatBool(p.EnableAdaptiveBitrate))
	}
	return q
}

// StopEncodingProcess stops the server-side transcode of a play session
func (c *Client) StopEncodingProcess(ctx context.Context, deviceID, playSessionID string) error {
	query := url.Values{}
	query.Set("deviceId", deviceID)
	query.Set("playSessionId", playSessionID)
	return c.send(ctx, http.MethodDelete, "/Videos/ActiveEncodings", query, nil)
}

// GetSegments returns the intro-skipper segment map of an item, keyed by label
func (c *Client) GetSegments(ctx context.Context, itemID uuid.UUID) (map[string]domain.RawSegment, error) {
	var resp map[string]Segment
	if err := c.getJSON(ctx, fmt.Sprintf("/Episode/%s/IntroSkipperSegments", itemID), nil, &resp); err != nil {
		return nil, err
	}
	return MapSegments(resp), nil
}

// GetTrickplayTile returns the raw jpeg of one trickplay tile
func (c *Client) GetTrickplayTile(ctx context.Context, itemID uuid.UUID, width, index int) ([]byte, error) {
	path := fmt.Sprintf("/Videos/%s/Trickplay/%d/%d.jpg", itemID, width, index)
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// PostCapabilities advertises this client's playback and remote-control support
func (c *Client) PostCapabilities(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/Sessions/Capabilities/Full", nil, ClientCapabilities{
		PlayableMediaTypes:   []string{"Video"},
		SupportedCommands:    supportedCommands,
		SupportsMediaControl: true,
	})
}

// ReportPlaybackStart reports that playback of an item started
func (c *Client) ReportPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	return c.send(ctx, http.MethodPost, "/Sessions/Playing", nil, PlaybackReport{ItemID: itemID.String()})
}

// ReportPlaybackProgress reports the current playback position
func (c *Client) ReportPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, isPaused bool) error {
	return c.send(ctx, http.MethodPost, "/Sessions/Playing/Progress", nil, PlaybackReport{
		ItemID:        itemID.String(),
		PositionTicks: positionTicks,
		IsPaused:      isPaused,
	})
}

// ReportPlaybackStopped reports that playback stopped at positionTicks
func (c *Client) ReportPlaybackStopped(ctx context.Context, itemID uuid.UUID, positionTicks int64) error {
	return c.send(ctx, http.MethodPost, "/Sessions/Playing/Stopped", nil, PlaybackReport{
		ItemID:        itemID.String(),
		PositionTicks: positionTicks,
	})
}

// MarkFavorite adds an item to the user's favorites
func (c *Client) MarkFavorite(ctx context.Context, itemID uuid.UUID) error {
	return c.send(ctx, http.MethodPost, c.userPath("/FavoriteItems/%s", itemID), nil, nil)
}

// UnmarkFavorite removes an item from the user's favorites
func (c *Client) UnmarkFavorite(ctx context.Context, itemID uuid.UUID) error {
	return c.send(ctx, http.MethodDelete, c.userPath("/FavoriteItems/%s", itemID), nil, nil)
}

// MarkPlayed marks an item as fully watched
func (c *Client) MarkPlayed(ctx context.Context, itemID uuid.UUID) error {
	return c.send(ctx, http.MethodPost, c.userPath("/PlayedItems/%s", itemID), nil, nil)
}

// MarkUnplayed marks an item as unwatched
func (c *Client) MarkUnplayed(ctx context.Context, itemID uuid.UUID) error {
	return c.send(ctx, http.MethodDelete, c.userPath("/PlayedItems/%s", itemID), nil, nil)
}
