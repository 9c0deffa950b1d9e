// Package trickplay stores downloaded trickplay tiles on disk, laid out as
// <root>/<itemID>/<width>/<index>.
package trickplay

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrMiss indicates no local tile exists for the request
var ErrMiss = errors.New("trickplay tile not cached")

// Cache is a file-based trickplay tile cache
type Cache struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

// NewCache creates a cache rooted at root on fsys. A nil fsys uses the OS filesystem.
func NewCache(fsys afero.Fs, root string, logger *slog.Logger) *Cache {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{fs: fsys, root: root, logger: logger}
}

func (c *Cache) itemDir(itemID uuid.UUID) string {
	return filepath.Join(c.root, itemID.String())
}

// Get returns a cached tile. The exact width is preferred; otherwise the
// narrowest stored width is used, since downloads keep a single resolution per item.
func (c *Cache) Get(itemID uuid.UUID, width, index int) ([]byte, error) {
	dir := c.itemDir(itemID)
	name := strconv.Itoa(index)

	exact := filepath.Join(dir, strconv.Itoa(width), name)
	if data, err := afero.ReadFile(c.fs, exact); err == nil {
		return data, nil
	}

	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to list trickplay dir: %w", err)
	}

	var widths []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if w, err := strconv.Atoi(e.Name()); err == nil {
			widths = append(widths, w)
		}
	}
	if len(widths) == 0 {
		return nil, ErrMiss
	}
	sort.Ints(widths)

	data, err := afero.ReadFile(c.fs, filepath.Join(dir, strconv.Itoa(widths[0]), name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read trickplay tile: %w", err)
	}
	return data, nil
}

// Put stores a tile
func (c *Cache) Put(itemID uuid.UUID, width, index int, data []byte) error {
	dir := filepath.Join(c.itemDir(itemID), strconv.Itoa(width))
	if err := c.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create trickplay dir: %w", err)
	}
	if err := afero.WriteFile(c.fs, filepath.Join(dir, strconv.Itoa(index)), data, 0644); err != nil {
		return fmt.Errorf("failed to write trickplay tile: %w", err)
	}
	return nil
}

// Remove deletes every cached tile of an item
func (c *Cache) Remove(itemID uuid.UUID) error {
	if err := c.fs.RemoveAll(c.itemDir(itemID)); err != nil {
		return fmt.Errorf("failed to remove trickplay tiles: %w", err)
	}
	c.logger.Debug("removed trickplay tiles", "itemID", itemID)
	return nil
}
