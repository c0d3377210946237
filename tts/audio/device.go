package audio

import (
	"errors"
	"io"
)

// ErrNoDevice is returned when no audio output is available.
var ErrNoDevice = errors.New("audio device not available")

// Device opens output streams. *oto.Context backs the real device.
type Device interface {
	NewStream(r io.Reader) Stream
}

// Stream is one playing sound. *oto.Player satisfies it.
type Stream interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
	Close() error
}
