package search

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/sahilm/fuzzy"
)

// DefaultKinds are searched when the caller names none
var DefaultKinds = []domain.ItemKind{domain.KindMovie, domain.KindShow, domain.KindEpisode}

// ItemLister lists cached items of one kind for a server
type ItemLister interface {
	ListByServer(serverID string, kind domain.ItemKind) ([]domain.Item, error)
}

// Index implements sahilm/fuzzy.Source over items with pre-computed lowercase titles
type Index struct {
	items       []domain.Item
	lowerTitles []string
}

// NewIndex builds an index over items
func NewIndex(items []domain.Item) *Index {
	idx := &Index{
		items:       items,
		lowerTitles: make([]string, len(items)),
	}
	for i, item := range items {
		idx.lowerTitles[i] = strings.ToLower(item.Name)
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of items (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.items) }

// Find returns the items matching query, best match first
func (idx *Index) Find(query string) []domain.Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || idx.Len() == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(query, idx)
	results := make([]domain.Item, len(matches))
	for i, m := range matches {
		results[i] = idx.items[m.Index]
	}
	return results
}

// Service searches the local cache when the server cannot
type Service struct {
	items  ItemLister
	logger *slog.Logger
}

// NewService creates a new search service
func NewService(items ItemLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		items:  items,
		logger: logger,
	}
}

// SearchLocal fuzzy matches query against every cached item of kinds for serverID
func (s *Service) SearchLocal(serverID, query string, kinds []domain.ItemKind) ([]domain.Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}

	var all []domain.Item
	for _, kind := range kinds {
		items, err := s.items.ListByServer(serverID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list cached %s items: %w", kind, err)
		}
		all = append(all, items...)
	}

	results := NewIndex(all).Find(query)
	s.logger.Debug("local search complete", "query", query, "candidates", len(all), "results", len(results))
	return results, nil
}

// Rank orders server results by how closely their titles match query
func Rank(items []domain.Item, query string) []domain.Item {
	if len(items) == 0 {
		return items
	}

	query = strings.ToLower(query)

	type rankedItem struct {
		item  domain.Item
		score int
	}

	ranked := make([]rankedItem, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, rankedItem{item: item, score: matchScore(strings.ToLower(item.Name), query, item)})
	}

	// Sort by score (lower is better)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	results := make([]domain.Item, len(ranked))
	for i, r := range ranked {
		results[i] = r.item
	}
	return results
}

// matchScore calculates a match score for ranking. Lower score = better match.
func matchScore(title, query string, item domain.Item) int {
	switch {
	case title == query:
		return 0
	case strings.HasPrefix(title, query):
		return 10
	case strings.Contains(title, query):
		return 50
	}

	score := 100 + lfuzzy.LevenshteinDistance(query, title)

	// Boost movies over episodes for single-word queries
	if len(strings.Fields(query)) == 1 && item.Kind == domain.KindMovie {
		score -= 10
	}
	return score
}
