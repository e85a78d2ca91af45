// Package cache persists small values between CLI invocations. Entries are
// gob files whose names carry the expiry, so staleness checks never have to
// open the file.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const ext = ".gob"

var errInvalidID = errors.New("invalid id")

// Cache is a directory of expiring gob entries, one file per id.
type Cache[T any] struct {
	dir string
}

// New makes a Cache rooted at dir, creating the directory as needed.
func New[T any](dir string) (*Cache[T], error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache[T]{dir: dir}, nil
}

func (c *Cache[T]) filename(id string, expiresAt int64) string {
	return fmt.Sprintf("%s.%d%s", id, expiresAt, ext)
}

func (c *Cache[T]) matches(id string) ([]string, error) {
	if id == "" {
		return nil, errInvalidID
	}
	return filepath.Glob(filepath.Join(c.dir, id+".*"+ext))
}

// Read decodes the entry under id into v. Missing and expired entries both
// report os.ErrNotExist; expired ones are removed on the way.
func (c *Cache[T]) Read(id string, v *T) error {
	matches, err := c.matches(id)
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if len(matches) == 0 {
		return os.ErrNotExist
	}
	name := matches[0]

	expiresAt, err := parseExpiry(name)
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if expiresAt < time.Now().Unix() {
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("remove expired cache entry: %w", err)
		}
		return os.ErrNotExist
	}

	file, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("decode cache entry: %w", err)
	}
	return nil
}

// Write stores v under id for ttl, replacing any previous entry.
func (c *Cache[T]) Write(id string, ttl time.Duration, v *T) error {
	old, err := c.matches(id)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	for _, name := range old {
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("replace cache entry: %w", err)
		}
	}

	path := filepath.Join(c.dir, c.filename(id, time.Now().Add(ttl).Unix()))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry under id, expired or not.
func (c *Cache[T]) Delete(id string) error {
	matches, err := c.matches(id)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	for _, name := range matches {
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("delete cache entry: %w", err)
		}
	}
	return nil
}

func parseExpiry(name string) (int64, error) {
	base := strings.TrimSuffix(filepath.Base(name), ext)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return 0, fmt.Errorf("invalid cache filename %q", filepath.Base(name))
	}
	n, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expiration timestamp: %w", err)
	}
	return n, nil
}
