package search

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

type fakeLister map[domain.ItemKind][]domain.Item

func (f fakeLister) ListByServer(serverID string, kind domain.ItemKind) ([]domain.Item, error) {
	if serverID != "srv" {
		return nil, errors.New("unknown server")
	}
	return f[kind], nil
}

func named(kind domain.ItemKind, name string) domain.Item {
	return domain.Item{ID: uuid.New(), Kind: kind, Name: name}
}

func TestSearchLocal(t *testing.T) {
	lister := fakeLister{
		domain.KindMovie: {named(domain.KindMovie, "The Matrix"), named(domain.KindMovie, "Heat")},
		domain.KindShow:  {named(domain.KindShow, "Mr. Robot")},
	}
	s := NewService(lister, nil)

	got, err := s.SearchLocal("srv", "mtrx", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "The Matrix" {
		t.Errorf("SearchLocal(mtrx) = %+v", got)
	}

	got, err = s.SearchLocal("srv", "robot", []domain.ItemKind{domain.KindMovie})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("kind filter ignored: %+v", got)
	}

	if got, _ := s.SearchLocal("srv", "  ", nil); got != nil {
		t.Errorf("blank query returned %+v", got)
	}

	if _, err := s.SearchLocal("other", "heat", nil); err == nil {
		t.Error("expected lister error to propagate")
	}
}

func TestRank(t *testing.T) {
	items := []domain.Item{
		named(domain.KindEpisode, "Heat Wave"),
		named(domain.KindMovie, "Heatwave Remastered"),
		named(domain.KindMovie, "Heat"),
		named(domain.KindShow, "The Heat"),
	}

	got := Rank(items, "Heat")
	want := []string{"Heat", "Heat Wave", "Heatwave Remastered", "The Heat"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("rank %d = %q, want %q", i, got[i].Name, name)
		}
	}
}
