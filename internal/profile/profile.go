// Package profile builds device capability profiles and posts them to the
// server's playback-info negotiation. The server makes the transcode decision;
// this package only supplies constraints.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

const (
	// TranscodeBitrateCeiling caps transcoded video regardless of the requested maxBitrate
	TranscodeBitrateCeiling = 8_000_000

	// DirectPlayAllBitrate is the max bitrate advertised by the direct-play-all profile
	DirectPlayAllBitrate = 1_000_000_000

	DefaultTranscodeCodec = "h264"

	profileName          = "ReelUser"
	directPlayAllName    = "Direct play all"
	transcodeAudioCodec  = "aac"
	transcodeProtocolHLS = "hls"
)

// SubtitleFormats are the subtitle formats delivered as external files
var SubtitleFormats = []string{"srt", "ass", "sub", "vtt", "ssa", "pgs", "dvb_teletext", "dvd_subtitle"}

// Negotiator builds device profiles and negotiates playback with the server
type Negotiator struct {
	remote         domain.RemoteClient
	transcodeCodec string
	logger         *slog.Logger
}

// NewNegotiator creates a negotiator. An empty transcodeCodec selects h264.
func NewNegotiator(remote domain.RemoteClient, transcodeCodec string, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	if transcodeCodec == "" {
		transcodeCodec = DefaultTranscodeCodec
	}
	return &Negotiator{
		remote:         remote,
		transcodeCodec: transcodeCodec,
		logger:         logger,
	}
}

// TranscodeCodec returns the video codec requested for transcodes
func (n *Negotiator) TranscodeCodec() string {
	return n.transcodeCodec
}

// BuildDeviceProfile describes a client that direct plays any video or audio and
// transcodes into container/context under a fixed video bitrate ceiling.
func (n *Negotiator) BuildDeviceProfile(userID uuid.UUID, maxBitrate int, container string, encoding domain.EncodingContext) domain.DeviceProfile {
	subtitles := make([]domain.SubtitleProfile, 0, len(SubtitleFormats))
	for _, format := range SubtitleFormats {
		subtitles = append(subtitles, domain.SubtitleProfile{Format: format, Method: domain.SubtitleExternal})
	}

	return domain.DeviceProfile{
		Name:                profileName,
		ID:                  userID.String(),
		MaxStaticBitrate:    maxBitrate,
		MaxStreamingBitrate: maxBitrate,
		CodecProfiles:       []domain.CodecProfile{},
		ContainerProfiles:   []domain.ContainerProfile{},
		DirectPlayProfiles: []domain.DirectPlayProfile{
			{Type: domain.ProfileVideo},
			{Type: domain.ProfileAudio},
		},
		TranscodingProfiles: []domain.TranscodingProfile{{
			Container:  container,
			Type:       domain.ProfileVideo,
			Context:    encoding,
			Protocol:   transcodeProtocolHLS,
			AudioCodec: transcodeAudioCodec,
			VideoCodec: n.transcodeCodec,
			Conditions: []domain.ProfileCondition{{
				Condition:  "LessThanEqual",
				Property:   "VideoBitrate",
				Value:      strconv.Itoa(TranscodeBitrateCeiling),
				IsRequired: true,
			}},
			CopyTimestamps:            true,
			EnableSubtitlesInManifest: true,
			TranscodeSeekInfo:         "Auto",
		}},
		SubtitleProfiles: subtitles,
	}
}

// DirectPlayAllProfile asks the server for every source as-is, with no transcoding
func DirectPlayAllProfile() domain.DeviceProfile {
	return domain.DeviceProfile{
		Name:                directPlayAllName,
		MaxStaticBitrate:    DirectPlayAllBitrate,
		MaxStreamingBitrate: DirectPlayAllBitrate,
		CodecProfiles:       []domain.CodecProfile{},
		ContainerProfiles:   []domain.ContainerProfile{},
		DirectPlayProfiles: []domain.DirectPlayProfile{
			{Type: domain.ProfileVideo},
			{Type: domain.ProfileAudio},
		},
		TranscodingProfiles: []domain.TranscodingProfile{},
		SubtitleProfiles: []domain.SubtitleProfile{
			{Format: "srt", Method: domain.SubtitleExternal},
			{Format: "ass", Method: domain.SubtitleExternal},
		},
	}
}

// GetPostedPlaybackInfo posts profile with transcoding forced on and direct play
// off. The negotiated sources and transcode metadata are returned unmodified.
func (n *Negotiator) GetPostedPlaybackInfo(ctx context.Context, userID, itemID uuid.UUID, enableDirectStream bool, profile domain.DeviceProfile, maxBitrate int) (domain.PlaybackInfo, error) {
	info, err := n.remote.PostPlaybackInfo(ctx, itemID, domain.PlaybackInfoRequest{
		UserID:               userID,
		DeviceProfile:        profile,
		MaxStreamingBitrate:  maxBitrate,
		EnableTranscoding:    true,
		EnableDirectPlay:     false,
		EnableDirectStream:   enableDirectStream,
		AutoOpenLiveStream:   true,
		AllowAudioStreamCopy: true,
		AllowVideoStreamCopy: true,
	})
	if err != nil {
		return domain.PlaybackInfo{}, fmt.Errorf("failed to negotiate playback for %s: %w", itemID, err)
	}

	n.logger.Debug("playback negotiated", "itemID", itemID, "sources", len(info.Sources), "playSessionID", info.PlaySessionID)
	return info, nil
}

// GetDirectPlayInfo posts the direct-play-all profile and returns every source as-is
func (n *Negotiator) GetDirectPlayInfo(ctx context.Context, userID, itemID uuid.UUID) (domain.PlaybackInfo, error) {
	info, err := n.remote.PostPlaybackInfo(ctx, itemID, domain.PlaybackInfoRequest{
		UserID:              userID,
		DeviceProfile:       DirectPlayAllProfile(),
		MaxStreamingBitrate: DirectPlayAllBitrate,
		EnableDirectPlay:    true,
		EnableDirectStream:  true,
		EnableTranscoding:   true,
	})
	if err != nil {
		return domain.PlaybackInfo{}, fmt.Errorf("failed to fetch sources for %s: %w", itemID, err)
	}
	return info, nil
}
