package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	rawExt = ".pcm"
	zstExt = ".pcm.zst"

	// Small values are not worth compressing.
	minCompressSize = 1024
)

// DiskCache stores values as files under a directory, optionally zstd
// compressed. The index is rebuilt from the directory on open and file
// modification times track recency.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	path       string
	size       int64
	lastAccess time.Time
}

// NewDiskCache opens (creating if needed) a disk cache in dir holding up
// to capacity bytes on disk. A compressionLevel of 0 stores raw PCM.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so a cache written compressed can be
	// read with compression turned off.
	var err error
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if err := dc.scan(); err != nil {
		return nil, err
	}
	return dc, nil
}

// scan rebuilds the index from the files in the cache directory.
func (dc *DiskCache) scan() error {
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		var key string
		switch {
		case strings.HasSuffix(name, zstExt):
			key = strings.TrimSuffix(name, zstExt)
		case strings.HasSuffix(name, rawExt):
			key = strings.TrimSuffix(name, rawExt)
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dc.index[key] = &diskEntry{
			path:       filepath.Join(dc.dir, name),
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		dc.size += info.Size()
	}
	log.Debug("cache: disk index loaded", "dir", dc.dir, "items", len(dc.index), "size", dc.size)
	return nil
}

// Get reads the value for key. Unreadable or corrupt files are dropped.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.path)
	if err == nil && strings.HasSuffix(entry.path, zstExt) {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		log.Debug("cache: dropping unreadable entry", "path", entry.path, "err", err)
		dc.remove(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.lastAccess = now
	_ = os.Chtimes(entry.path, now, now)
	dc.stats.Hits++
	return data, true
}

// Put writes value for key, evicting the least recently used files when the
// cache is full.
func (dc *DiskCache) Put(key string, value []byte) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	data, ext := value, rawExt
	if dc.encoder != nil && len(value) > minCompressSize {
		if compressed := dc.encoder.EncodeAll(value, nil); len(compressed) < len(value) {
			data, ext = compressed, zstExt
		}
	}
	n := int64(len(data))

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if n > dc.capacity {
		return ErrItemTooLarge
	}
	if existing, ok := dc.index[key]; ok {
		dc.remove(key, existing)
	}
	dc.evict(n)

	path := filepath.Join(dc.dir, key+ext)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[key] = &diskEntry{path: path, size: n, lastAccess: time.Now()}
	dc.size += n
	return nil
}

// evict drops least recently used entries until n more bytes fit. Must be
// called with the lock held.
func (dc *DiskCache) evict(n int64) {
	if dc.size+n <= dc.capacity {
		return
	}
	keys := make([]string, 0, len(dc.index))
	for k := range dc.index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return dc.index[keys[i]].lastAccess.Before(dc.index[keys[j]].lastAccess)
	})
	for _, k := range keys {
		if dc.size+n <= dc.capacity {
			break
		}
		dc.remove(k, dc.index[k])
		dc.stats.Evictions++
	}
}

// remove must be called with the lock held.
func (dc *DiskCache) remove(key string, entry *diskEntry) {
	_ = os.Remove(entry.path)
	delete(dc.index, key)
	dc.size -= entry.size
}

// Stats returns a snapshot of the counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.Capacity, s.Size, s.Items = dc.capacity, dc.size, len(dc.index)
	return s
}

// Close releases the compression codecs.
func (dc *DiskCache) Close() error {
	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	dc.decoder.Close()
	return nil
}
