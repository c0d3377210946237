package audio

import (
	"io"
	"sync"
	"time"
)

// SilentDevice is a Device that produces no sound but takes as long as the
// audio would to play. It is used in headless runs without an audio device
// and in tests.
type SilentDevice struct {
	// Speed scales playback time; 2 plays twice as fast. Zero means 1.
	Speed float64
}

// NewStream reads all of r to learn the audio duration.
func (d SilentDevice) NewStream(r io.Reader) Stream {
	pcm, _ := io.ReadAll(r)
	dur := Duration(pcm)
	if d.Speed > 0 {
		dur = time.Duration(float64(dur) / d.Speed)
	}
	return &silentStream{remaining: dur}
}

type silentStream struct {
	mu        sync.Mutex
	remaining time.Duration
	started   time.Time
	playing   bool
}

func (s *silentStream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		s.playing = true
		s.started = time.Now()
	}
}

func (s *silentStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.remaining -= time.Since(s.started)
		s.playing = false
	}
}

func (s *silentStream) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && time.Since(s.started) < s.remaining
}

func (s *silentStream) SetVolume(float64) {}

func (s *silentStream) Close() error {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	return nil
}
