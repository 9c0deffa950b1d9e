package domain

import "github.com/google/uuid"

// SortBy is the enumerated set of list sort keys
type SortBy string

const (
	SortByName        SortBy = "SortName"
	SortByDateAdded   SortBy = "DateCreated"
	SortByDatePlayed  SortBy = "DatePlayed"
	SortByReleaseDate SortBy = "PremiereDate"
	SortByRating      SortBy = "CommunityRating"
	SortByRuntime     SortBy = "Runtime"
	SortByIndex       SortBy = "IndexNumber"
)

// Valid reports whether s is one of the known sort keys
func (s SortBy) Valid() bool {
	switch s {
	case SortByName, SortByDateAdded, SortByDatePlayed, SortByReleaseDate, SortByRating, SortByRuntime, SortByIndex:
		return true
	}
	return false
}

// SortOrder is the list sort direction
type SortOrder string

const (
	SortAscending  SortOrder = "Ascending"
	SortDescending SortOrder = "Descending"
)

// ItemFilter is a server-side list filter
type ItemFilter string

const (
	FilterIsFavorite  ItemFilter = "IsFavorite"
	FilterIsPlayed    ItemFilter = "IsPlayed"
	FilterIsUnplayed  ItemFilter = "IsUnplayed"
	FilterIsResumable ItemFilter = "IsResumable"
)

// ItemQuery selects a list of items. Zero values mean "not set".
type ItemQuery struct {
	ParentID     uuid.UUID
	IncludeTypes []ItemKind
	Recursive    bool
	SortBy       SortBy
	SortOrder    SortOrder
	StartIndex   int
	Limit        int
	Filters      []ItemFilter
	PersonIDs    []uuid.UUID
	SearchTerm   string
}

// PagingWindow is a cursor over one bounded list fetch
type PagingWindow struct {
	Offset int
	Limit  int
}

// Window returns a copy of q narrowed to w
func (q ItemQuery) Window(w PagingWindow) ItemQuery {
	q.StartIndex = w.Offset
	q.Limit = w.Limit
	return q
}

// EpisodeQuery selects the episodes of one season
type EpisodeQuery struct {
	SeriesID    uuid.UUID
	SeasonID    uuid.UUID
	Fields      []string
	StartItemID uuid.UUID
	Limit       int
}
