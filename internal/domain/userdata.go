package domain

import "github.com/google/uuid"

// UserData is the per (item, user) interaction state.
// ToBeSynced is the SyncFlag: when set, the local row is ahead of the server.
type UserData struct {
	Favorite              bool  `json:"favorite"`
	Played                bool  `json:"played"`
	PlaybackPositionTicks int64 `json:"playbackPositionTicks"`
	PlayCount             int   `json:"playCount,omitempty"`
	UnplayedItemCount     int   `json:"unplayedItemCount,omitempty"`
	ToBeSynced            bool  `json:"toBeSynced"`

	// Revision increments on every local mutation. The reconciler only
	// clears ToBeSynced if the revision it pushed is still current.
	Revision uint64 `json:"revision"`
}

// PendingUserData is a flagged user-data row awaiting reconciliation
type PendingUserData struct {
	UserID   uuid.UUID
	ItemID   uuid.UUID
	UserData UserData
}

// StopThresholds bound the played percentage window in which a resume
// position is kept. Below Low the item counts as not started; above High
// it counts as fully watched.
const (
	StopThresholdLow  = 10
	StopThresholdHigh = 90
)

// ApplyPlaybackStop returns the (position, played) pair to store for a
// stop event at positionTicks with the given played percentage.
func ApplyPlaybackStop(positionTicks int64, playedPercentage int) (int64, bool) {
	switch {
	case playedPercentage < StopThresholdLow:
		return 0, false
	case playedPercentage > StopThresholdHigh:
		return 0, true
	default:
		return positionTicks, false
	}
}
