package cache

import (
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/tts"
)

var _ tts.AudioCache = (*AudioCache)(nil)

// Config sizes an AudioCache.
type Config struct {
	MemoryCapacity   int64  // bytes; 0 disables the memory tier
	DiskCapacity     int64  // bytes; 0 disables the disk tier
	DiskPath         string // directory for cache files
	CompressionLevel int    // zstd level 1-22, 0 disables compression
}

// AudioCache layers a MemoryCache over a DiskCache. Disk hits are promoted
// to memory.
type AudioCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// New creates an AudioCache from cfg.
func New(cfg Config) (*AudioCache, error) {
	c := &AudioCache{}
	if cfg.MemoryCapacity > 0 {
		c.memory = NewMemoryCache(cfg.MemoryCapacity)
	}
	if cfg.DiskCapacity > 0 && cfg.DiskPath != "" {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		c.disk = disk
	}
	return c, nil
}

// Get implements tts.AudioCache.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	if c.memory != nil {
		if v, ok := c.memory.Get(key); ok {
			return v, true
		}
	}
	if c.disk != nil {
		if v, ok := c.disk.Get(key); ok {
			if c.memory != nil {
				_ = c.memory.Put(key, v)
			}
			return v, true
		}
	}
	return nil, false
}

// Put implements tts.AudioCache. Values too large for one tier are still
// stored in the other.
func (c *AudioCache) Put(key string, value []byte) error {
	var err error
	if c.memory != nil {
		if perr := c.memory.Put(key, value); perr != nil {
			err = perr
		}
	}
	if c.disk != nil {
		if perr := c.disk.Put(key, value); perr != nil {
			err = perr
		}
	}
	return err
}

// Close logs the final counters and releases the disk tier.
func (c *AudioCache) Close() error {
	if c.memory != nil {
		log.Debug("cache: memory", "stats", c.memory.Stats().String())
	}
	if c.disk != nil {
		log.Debug("cache: disk", "stats", c.disk.Stats().String())
		return c.disk.Close()
	}
	return nil
}
