package domain

import "github.com/google/uuid"

// SourceOrigin tells where a media source lives
type SourceOrigin int

const (
	SourceRemote SourceOrigin = iota
	SourceLocal
)

// String returns a human-readable representation of the origin
func (o SourceOrigin) String() string {
	if o == SourceLocal {
		return "local"
	}
	return "remote"
}

// Source is a playable media source for an item
type Source struct {
	ID           string       `json:"id"`
	ItemID       uuid.UUID    `json:"itemId"`
	Name         string       `json:"name,omitempty"`
	Origin       SourceOrigin `json:"origin"`
	Path         string       `json:"path,omitempty"`
	Protocol     string       `json:"protocol,omitempty"` // "File" or "Http"
	Container    string       `json:"container,omitempty"`
	VideoCodec   string       `json:"videoCodec,omitempty"`
	AudioCodec   string       `json:"audioCodec,omitempty"`
	Bitrate      int          `json:"bitrate,omitempty"`
	Size         int64        `json:"size,omitempty"`
	RunTimeTicks int64        `json:"runTimeTicks,omitempty"`

	SupportsDirectPlay   bool `json:"supportsDirectPlay,omitempty"`
	SupportsDirectStream bool `json:"supportsDirectStream,omitempty"`
	SupportsTranscoding  bool `json:"supportsTranscoding,omitempty"`

	// Negotiated transcode metadata, copied unmodified from the server
	TranscodingURL       string   `json:"transcodingUrl,omitempty"`
	TranscodingContainer string   `json:"transcodingContainer,omitempty"`
	TranscodeReasons     []string `json:"transcodeReasons,omitempty"`

	MediaStreams []MediaStream `json:"mediaStreams,omitempty"`

	// Download bookkeeping for local sources
	DownloadID int64 `json:"downloadId,omitempty"`
	Downloaded bool  `json:"downloaded,omitempty"`
}

// MediaStream is a video, audio or subtitle stream inside a source
type MediaStream struct {
	Index        int    `json:"index"`
	Type         string `json:"type"` // "Video", "Audio", "Subtitle"
	Codec        string `json:"codec,omitempty"`
	Language     string `json:"language,omitempty"`
	DisplayTitle string `json:"displayTitle,omitempty"`
	IsDefault    bool   `json:"isDefault,omitempty"`
	IsForced     bool   `json:"isForced,omitempty"`
	IsExternal   bool   `json:"isExternal,omitempty"`
	Path         string `json:"path,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	BitRate      int    `json:"bitRate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
}
