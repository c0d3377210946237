// Package cache keeps synthesized speech so sentences that are read again
// (after a pause, a restart, or paging back) do not hit the synthesizer.
// A small in-memory LRU sits in front of a zstd-compressed disk cache.
package cache

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrInvalidKey is returned for keys that are not usable as file names.
	ErrInvalidKey = errors.New("invalid cache key")
)

// Stats holds cache performance counters.
type Stats struct {
	Capacity  int64
	Size      int64
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d items, %s of %s, %.0f%% hits",
		s.Items, humanize.Bytes(uint64(s.Size)), humanize.Bytes(uint64(s.Capacity)), s.HitRate()*100)
}
