package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/mmcdole/reel/internal/domain"
)

// source serves the integers [0, n) and records requested windows
type source struct {
	n       int
	windows []domain.PagingWindow
	err     error
}

func (s *source) fetch(ctx context.Context, w domain.PagingWindow) ([]int, error) {
	s.windows = append(s.windows, w)
	if s.err != nil {
		return nil, s.err
	}
	var out []int
	for i := w.Offset; i < w.Offset+w.Limit && i < s.n; i++ {
		out = append(out, i)
	}
	return out, nil
}

func TestAllYieldsEveryItemInOrder(t *testing.T) {
	src := &source{n: 35}
	p := New(src.fetch)

	var got []int
	for v, err := range p.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
	}

	if len(got) != 35 {
		t.Fatalf("got %d items, want 35", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d", i, v)
		}
	}
	for _, w := range src.windows {
		if w.Limit != DefaultPageSize || w.Offset%DefaultPageSize != 0 {
			t.Errorf("unexpected window %+v", w)
		}
	}
	if !p.EndReached() {
		t.Error("end not reached")
	}
}

func TestPrefetchLoadsNextPage(t *testing.T) {
	src := &source{n: 100}
	p := New(src.fetch)

	if _, ok, err := p.Get(context.Background(), 0); !ok || err != nil {
		t.Fatalf("Get(0): ok=%v err=%v", ok, err)
	}
	start, items := p.Window()
	if start != 0 || len(items) != 2*DefaultPageSize {
		t.Errorf("window = (%d, %d items), want prefetched second page", start, len(items))
	}
}

func TestWindowIsCapped(t *testing.T) {
	src := &source{n: 500}
	p := New(src.fetch)
	ctx := context.Background()

	for i := 0; i <= 250; i++ {
		v, ok, err := p.Get(ctx, i)
		if err != nil || !ok || v != i {
			t.Fatalf("Get(%d) = %d ok=%v err=%v", i, v, ok, err)
		}
		if _, items := p.Window(); len(items) > DefaultMaxSize {
			t.Fatalf("window grew to %d items", len(items))
		}
	}

	start, _ := p.Window()
	if start == 0 {
		t.Fatal("front pages were never dropped")
	}

	// Scrolling back refetches dropped pages
	v, ok, err := p.Get(ctx, 3)
	if err != nil || !ok || v != 3 {
		t.Fatalf("Get(3) after trim = %d ok=%v err=%v", v, ok, err)
	}
	if _, items := p.Window(); len(items) > DefaultMaxSize {
		t.Errorf("window grew to %d items after scrolling back", len(items))
	}
}

func TestRandomAccessJumpsWindow(t *testing.T) {
	src := &source{n: 1000}
	p := New(src.fetch)
	ctx := context.Background()

	if _, _, err := p.Get(ctx, 0); err != nil {
		t.Fatal(err)
	}
	src.windows = nil

	v, ok, err := p.Get(ctx, 555)
	if err != nil || !ok || v != 555 {
		t.Fatalf("Get(555) = %d ok=%v err=%v", v, ok, err)
	}
	start, items := p.Window()
	if start != 550 || len(items) > DefaultMaxSize {
		t.Errorf("window = (%d, %d items), want a fresh window at 550", start, len(items))
	}
	if len(src.windows) > 2 || src.windows[0].Offset != 550 {
		t.Errorf("fetched %+v, want the target page and at most one prefetch", src.windows)
	}

	v, ok, err = p.Get(ctx, 12)
	if err != nil || !ok || v != 12 {
		t.Fatalf("Get(12) = %d ok=%v err=%v", v, ok, err)
	}
	if start, _ := p.Window(); start != 10 {
		t.Errorf("window start = %d after jumping back, want 10", start)
	}
}

func TestGetPastEnd(t *testing.T) {
	src := &source{n: 5}
	p := New(src.fetch)

	_, ok, err := p.Get(context.Background(), 7)
	if err != nil || ok {
		t.Errorf("Get(7): ok=%v err=%v", ok, err)
	}
	if len(src.windows) != 1 {
		t.Errorf("expected one fetch, got %v", src.windows)
	}
}

func TestEmptySource(t *testing.T) {
	src := &source{}
	p := New(src.fetch)

	for range p.All(context.Background()) {
		t.Fatal("expected no items")
	}
	if len(src.windows) != 1 {
		t.Errorf("fetches = %d, want 1", len(src.windows))
	}
}

func TestFetchErrorStopsIteration(t *testing.T) {
	boom := errors.New("boom")
	src := &source{n: 50, err: boom}
	p := New(src.fetch)

	var gotErr error
	for _, err := range p.All(context.Background()) {
		gotErr = err
	}
	if !errors.Is(gotErr, boom) {
		t.Errorf("err = %v, want boom", gotErr)
	}
}

func TestCustomPageSize(t *testing.T) {
	src := &source{n: 12}
	p := New(src.fetch, WithPageSize(4), WithPrefetchDistance(1))

	if _, _, err := p.Get(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if _, items := p.Window(); len(items) != 4 {
		t.Errorf("loaded %d items, want a single page of 4", len(items))
	}
}
