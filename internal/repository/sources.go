package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

// Fixed stream parameters
const (
	streamAudioCodec       = "aac"
	streamAudioBitrate     = 128_000
	streamSegmentContainer = "ts"
	streamTranscodeReason  = "ContainerBitrateExceedsLimit"
)

// GetMediaSources returns the server's sources for an item followed by the
// locally downloaded ones. Remote paths are blanked unless includePath is set.
// If the server cannot be reached, downloaded sources alone are returned.
func (r *Repository) GetMediaSources(ctx context.Context, itemID uuid.UUID, includePath bool) ([]domain.Source, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	info, remoteErr := r.negotiator.GetDirectPlayInfo(ctx, sess.UserID, itemID)
	observe("GetMediaSources", remoteErr)
	if remoteErr != nil && !domain.IsRemoteFailure(remoteErr) {
		return nil, remoteErr
	}

	sources := make([]domain.Source, 0, len(info.Sources))
	for _, src := range info.Sources {
		src.Origin = domain.SourceRemote
		if src.ItemID == uuid.Nil {
			src.ItemID = itemID
		}
		if !includePath {
			src.Path = ""
		}
		sources = append(sources, src)
	}

	local, err := r.store.GetSources(itemID)
	if err != nil {
		r.logger.Warn("failed to read local sources", "itemID", itemID, "error", err)
	}

	if remoteErr != nil {
		if len(local) == 0 {
			return nil, remoteErr
		}
		r.logger.Warn("serving downloaded sources only", "itemID", itemID, "error", remoteErr)
	}
	return append(sources, local...), nil
}

// GetStreamURL returns a static stream URL for a source, or "" if none can be built
func (r *Repository) GetStreamURL(itemID uuid.UUID, mediaSourceID, playSessionID string) string {
	url, err := r.remote.StreamURL(domain.StreamParams{
		ItemID:        itemID,
		Static:        true,
		MediaSourceID: mediaSourceID,
		PlaySessionID: playSessionID,
	})
	if err != nil {
		r.logger.Error("failed to build stream url", "itemID", itemID, "error", err)
		return ""
	}
	return url
}

// GetVideoStreamByContainerURL returns a transcoded stream URL in container at an
// explicit bitrate and height, or "" if none can be built
func (r *Repository) GetVideoStreamByContainerURL(
	itemID uuid.UUID,
	deviceID, mediaSourceID, playSessionID string,
	videoBitrate int,
	container string,
	maxHeight int,
) string {
	url, err := r.remote.StreamURL(domain.StreamParams{
		ItemID:         itemID,
		DeviceID:       deviceID,
		MediaSourceID:  mediaSourceID,
		PlaySessionID:  playSessionID,
		Container:      container,
		VideoBitrate:   videoBitrate,
		AudioBitrate:   streamAudioBitrate,
		VideoCodec:     r.negotiator.TranscodeCodec(),
		AudioCodec:     streamAudioCodec,
		MaxHeight:      maxHeight,
		CopyTimestamps: true,
		SubtitleMethod: domain.SubtitleExternal,
	})
	if err != nil {
		r.logger.Error("failed to build container stream url", "itemID", itemID, "error", err)
		return ""
	}
	return url
}

// GetTranscodedVideoStream returns an HLS master playlist URL, or "" if none
// can be built. domain.AutoBitrate selects adaptive streaming and leaves the
// bitrate to the server; any other value pins it.
func (r *Repository) GetTranscodedVideoStream(itemID uuid.UUID, deviceID, mediaSourceID, playSessionID string, videoBitrate int) string {
	p := domain.StreamParams{
		ItemID:           itemID,
		DeviceID:         deviceID,
		MediaSourceID:    mediaSourceID,
		PlaySessionID:    playSessionID,
		VideoCodec:       r.negotiator.TranscodeCodec(),
		AudioCodec:       streamAudioCodec,
		CopyTimestamps:   true,
		SubtitleMethod:   domain.SubtitleExternal,
		Context:          domain.ContextStreaming,
		SegmentContainer: streamSegmentContainer,
	}
	if videoBitrate == domain.AutoBitrate {
		p.EnableAdaptiveBitrate = true
	} else {
		p.VideoBitrate = videoBitrate
		p.AudioBitrate = streamAudioBitrate
		p.TranscodeReasons = streamTranscodeReason
	}

	url, err := r.remote.MasterPlaylistURL(p)
	if err != nil {
		r.logger.Error("failed to build transcode url", "itemID", itemID, "videoBitrate", videoBitrate, "error", err)
		return ""
	}
	return url
}

// BuildDeviceProfile builds a capability profile for the current user
func (r *Repository) BuildDeviceProfile(maxBitrate int, container string, encoding domain.EncodingContext) (domain.DeviceProfile, error) {
	sess, err := r.sessions.Session()
	if err != nil {
		return domain.DeviceProfile{}, err
	}
	return r.negotiator.BuildDeviceProfile(sess.UserID, maxBitrate, container, encoding), nil
}

// GetPostedPlaybackInfo negotiates playback of itemID under profile
func (r *Repository) GetPostedPlaybackInfo(ctx context.Context, itemID uuid.UUID, enableDirectStream bool, profile domain.DeviceProfile, maxBitrate int) (domain.PlaybackInfo, error) {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return domain.PlaybackInfo{}, err
	}
	defer release()

	info, err := r.negotiator.GetPostedPlaybackInfo(ctx, sess.UserID, itemID, enableDirectStream, profile, maxBitrate)
	observe("GetPostedPlaybackInfo", err)
	return info, err
}

// StopEncodingProcess ends the server-side transcode of a play session
func (r *Repository) StopEncodingProcess(ctx context.Context, playSessionID string) error {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = r.remote.StopEncodingProcess(ctx, sess.DeviceID, playSessionID)
	observe("StopEncodingProcess", err)
	if err != nil {
		return fmt.Errorf("failed to stop encoding for %s: %w", playSessionID, err)
	}
	return nil
}
