package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// speechLike returns compressible data resembling quiet PCM.
func speechLike(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 7)
	}
	return b
}

func TestDiskCacheRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		level int
		size  int
		ext   string
	}{
		{name: "compressed", level: 3, size: 8192, ext: zstExt},
		{name: "small stays raw", level: 3, size: 100, ext: rawExt},
		{name: "compression off", level: 0, size: 8192, ext: rawExt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dc, err := NewDiskCache(dir, 1<<20, tt.level)
			if err != nil {
				t.Fatalf("NewDiskCache() error = %v", err)
			}
			defer dc.Close()

			value := speechLike(tt.size)
			if err := dc.Put("abc123", value); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "abc123"+tt.ext)); err != nil {
				t.Errorf("expected file with extension %s: %v", tt.ext, err)
			}

			got, ok := dc.Get("abc123")
			if !ok || !bytes.Equal(got, value) {
				t.Errorf("Get() returned %d bytes, ok=%v", len(got), ok)
			}
		})
	}
}

func TestDiskCachePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	value := speechLike(4096)
	if err := dc.Put("feed", value); err != nil {
		t.Fatal(err)
	}
	dc.Close()

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("feed")
	if !ok || !bytes.Equal(got, value) {
		t.Error("value should survive reopening the cache")
	}
}

func TestDiskCacheEviction(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 250, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	_ = dc.Put("old", make([]byte, 100))
	time.Sleep(10 * time.Millisecond)
	_ = dc.Put("new", make([]byte, 100))
	time.Sleep(10 * time.Millisecond)
	_ = dc.Put("newest", make([]byte, 100))

	if _, ok := dc.Get("old"); ok {
		t.Error("old should have been evicted")
	}
	if _, ok := dc.Get("newest"); !ok {
		t.Error("newest should be cached")
	}
	if s := dc.Stats(); s.Size > 250 || s.Evictions != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDiskCacheDropsCorruptEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad"+zstExt), []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	if _, ok := dc.Get("bad"); ok {
		t.Error("corrupt entry should miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad"+zstExt)); !os.IsNotExist(err) {
		t.Error("corrupt file should be removed")
	}
}

func TestDiskCacheRejectsPathKeys(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	if err := dc.Put("../escape", []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put() error = %v, want ErrInvalidKey", err)
	}
}

func TestAudioCachePromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	value := speechLike(2048)

	first, err := New(Config{DiskCapacity: 1 << 20, DiskPath: dir, CompressionLevel: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Put("cafe", value); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	c, err := New(Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: dir, CompressionLevel: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if got, ok := c.Get("cafe"); !ok || !bytes.Equal(got, value) {
		t.Fatal("disk hit expected")
	}
	if c.memory.Stats().Items != 1 {
		t.Error("disk hit should be promoted to memory")
	}
	if _, ok := c.Get("beef"); ok {
		t.Error("unknown key should miss")
	}
}
