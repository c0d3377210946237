package audio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/recite/tts"
)

var (
	// ErrStopped is returned by Play when Stop interrupted playback.
	ErrStopped = errors.New("playback stopped")
	// ErrBusy is returned by Play while another sound is playing.
	ErrBusy = errors.New("player is busy")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("player is closed")
)

const pollInterval = 10 * time.Millisecond

var _ tts.AudioPlayer = (*Player)(nil)

// Player plays one PCM buffer at a time on a Device.
type Player struct {
	device Device

	mu     sync.Mutex
	stream Stream
	stop   chan struct{}
	paused bool
	volume float64
	closed bool
}

// NewPlayer creates a player on device.
func NewPlayer(device Device) *Player {
	return &Player{device: device, volume: 1.0}
}

// Play plays pcm and blocks until it finished, Stop was called, or ctx is
// done.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return ErrClosed
	case p.stream != nil:
		p.mu.Unlock()
		return ErrBusy
	}
	s := p.device.NewStream(bytes.NewReader(pcm))
	s.SetVolume(p.volume)
	stop := make(chan struct{})
	p.stream, p.stop, p.paused = s, stop, false
	p.mu.Unlock()

	defer p.release(s)
	s.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return ErrStopped
		case <-ticker.C:
			p.mu.Lock()
			paused := p.paused
			p.mu.Unlock()
			if !paused && !s.IsPlaying() {
				return nil
			}
		}
	}
}

func (p *Player) release(s Stream) {
	p.mu.Lock()
	if p.stream == s {
		p.stream, p.stop, p.paused = nil, nil, false
	}
	p.mu.Unlock()
	_ = s.Close()
}

// Pause pauses the current sound.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return tts.ErrNotPlaying
	}
	p.paused = true
	p.stream.Pause()
	return nil
}

// Resume continues a paused sound.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return tts.ErrNotPlaying
	}
	p.paused = false
	p.stream.Play()
	return nil
}

// Stop makes a blocked Play return ErrStopped. Stopping an idle player is a
// no-op.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}

// SetVolume sets the volume for the current and later sounds.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if p.stream != nil {
		p.stream.SetVolume(volume)
	}
}

// Close stops playback. The process-wide device stays open.
func (p *Player) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.Stop()
}
