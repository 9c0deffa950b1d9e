// Package paging implements windowed incremental fetching over list
// operations. Pages are fetched on demand as the read position nears either
// edge of the loaded window. The window is capped; pages farthest from the
// read position are dropped first.
package paging

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/mmcdole/reel/internal/domain"
)

const (
	DefaultPageSize = 10
	DefaultMaxSize  = 100
)

// FetchFunc loads one window. Returning fewer than w.Limit items marks the end of data.
type FetchFunc[T any] func(ctx context.Context, w domain.PagingWindow) ([]T, error)

// Option configures a Pager
type Option func(*options)

type options struct {
	pageSize int
	maxSize  int
	prefetch int
	logger   *slog.Logger
}

// WithPageSize sets the page size (and the default prefetch distance)
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithMaxSize caps the number of loaded items
func WithMaxSize(n int) Option {
	return func(o *options) { o.maxSize = n }
}

// WithPrefetchDistance sets how close to an edge a read must be to load the next page
func WithPrefetchDistance(n int) Option {
	return func(o *options) { o.prefetch = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Pager holds a contiguous window of items starting at an absolute offset
type Pager[T any] struct {
	mu sync.Mutex

	fetch    FetchFunc[T]
	pageSize int
	maxSize  int
	prefetch int
	logger   *slog.Logger

	start      int // absolute offset of items[0], always a multiple of pageSize
	items      []T
	endReached bool
}

// New creates a pager over fetch
func New[T any](fetch FetchFunc[T], opts ...Option) *Pager[T] {
	o := options{pageSize: DefaultPageSize, maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize <= 0 {
		o.pageSize = DefaultPageSize
	}
	if o.prefetch <= 0 {
		o.prefetch = o.pageSize
	}
	if o.maxSize < 2*o.pageSize {
		o.maxSize = 2 * o.pageSize
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Pager[T]{
		fetch:    fetch,
		pageSize: o.pageSize,
		maxSize:  o.maxSize,
		prefetch: o.prefetch,
		logger:   o.logger,
	}
}

// Get returns the item at absolute index, loading pages as needed.
// ok is false once index is past the end of data.
func (p *Pager[T]) Get(ctx context.Context, index int) (item T, ok bool, err error) {
	if index < 0 {
		return item, false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= p.end() && p.endReached {
		return item, false, nil
	}
	// A jump more than a page past either edge starts a fresh window there
	if index < p.start-p.pageSize || index >= p.end()+p.pageSize {
		p.reseat(index)
	}

	for index < p.start {
		if err := p.loadBefore(ctx); err != nil {
			return item, false, err
		}
	}
	for index >= p.end() {
		if p.endReached {
			return item, false, nil
		}
		if err := p.loadAfter(ctx); err != nil {
			return item, false, err
		}
	}

	item = p.items[index-p.start]

	// Prefetch towards whichever edge the read position approaches
	if !p.endReached && p.end()-index <= p.prefetch {
		if err := p.loadAfter(ctx); err != nil {
			p.logger.Warn("page prefetch failed", "offset", p.end(), "error", err)
		}
	} else if p.start > 0 && index-p.start < p.prefetch {
		if err := p.loadBefore(ctx); err != nil {
			p.logger.Warn("page prefetch failed", "offset", p.start-p.pageSize, "error", err)
		}
	}

	p.trim(index)
	return item, true, nil
}

// Window returns the absolute offset and a copy of the currently loaded items
func (p *Pager[T]) Window() (int, []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start, append([]T(nil), p.items...)
}

// EndReached reports whether the last page has been loaded
func (p *Pager[T]) EndReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endReached
}

// Reset drops every loaded page
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = 0
	p.items = nil
	p.endReached = false
}

// All yields every item in order, fetching pages as iteration proceeds
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := 0; ; i++ {
			item, ok, err := p.Get(ctx, i)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok || !yield(item, nil) {
				return
			}
		}
	}
}

// reseat drops the window and moves it to the page holding index
func (p *Pager[T]) reseat(index int) {
	p.logger.Debug("reseating page window", "from", p.start, "to", index-index%p.pageSize)
	p.start = index - index%p.pageSize
	p.items = nil
	p.endReached = false
}

func (p *Pager[T]) end() int {
	return p.start + len(p.items)
}

func (p *Pager[T]) loadAfter(ctx context.Context) error {
	w := domain.PagingWindow{Offset: p.end(), Limit: p.pageSize}
	page, err := p.fetch(ctx, w)
	if err != nil {
		return err
	}
	if len(page) > w.Limit {
		page = page[:w.Limit]
	}
	p.items = append(p.items, page...)
	if len(page) < w.Limit {
		p.endReached = true
	}
	p.logger.Debug("loaded page", "offset", w.Offset, "count", len(page), "endReached", p.endReached)
	return nil
}

func (p *Pager[T]) loadBefore(ctx context.Context) error {
	offset := p.start - p.pageSize
	if offset < 0 {
		offset = 0
	}
	w := domain.PagingWindow{Offset: offset, Limit: p.start - offset}
	page, err := p.fetch(ctx, w)
	if err != nil {
		return err
	}
	if len(page) > w.Limit {
		page = page[:w.Limit]
	}
	p.items = append(page, p.items...)
	p.start = offset
	// A short page before the window means the data shrank; restart from it
	if len(page) < w.Limit {
		p.items = page
		p.endReached = true
	}
	p.logger.Debug("loaded page", "offset", w.Offset, "count", len(page))
	return nil
}

// trim drops whole pages from the edge farther from index until the window fits
func (p *Pager[T]) trim(index int) {
	for len(p.items) > p.maxSize {
		if index-p.start >= p.end()-index {
			p.items = p.items[p.pageSize:]
			p.start += p.pageSize
			continue
		}
		// Keep the back edge aligned to a page boundary
		drop := len(p.items) % p.pageSize
		if drop == 0 {
			drop = p.pageSize
		}
		p.items = p.items[:len(p.items)-drop]
		p.endReached = false
	}
}
