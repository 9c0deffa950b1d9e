package domain

import "github.com/google/uuid"

// SegmentType is the closed set of segment annotations
type SegmentType int

const (
	SegmentUnknown SegmentType = iota
	SegmentIntro
	SegmentCredits
)

// String returns a human-readable representation of the segment type
func (t SegmentType) String() string {
	switch t {
	case SegmentIntro:
		return "intro"
	case SegmentCredits:
		return "credits"
	default:
		return "unknown"
	}
}

// ClassifySegment maps a raw server label onto a SegmentType
func ClassifySegment(label string) SegmentType {
	switch label {
	case "Introduction":
		return SegmentIntro
	case "Credits":
		return SegmentCredits
	default:
		return SegmentUnknown
	}
}

// Segment is a typed sub-range of an item, in seconds
type Segment struct {
	ItemID    uuid.UUID   `json:"itemId"`
	Type      SegmentType `json:"type"`
	StartTime float64     `json:"startTime"`
	EndTime   float64     `json:"endTime"`
	ShowAt    float64     `json:"showAt"`
	HideAt    float64     `json:"hideAt"`
}

// RawSegment is a segment as returned by the server, before classification
type RawSegment struct {
	StartTime float64
	EndTime   float64
	ShowAt    float64
	HideAt    float64
}
