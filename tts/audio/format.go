// Package audio plays synthesized speech through the system audio device.
package audio

import "time"

// Audio format produced by every synthesizer. PCM is signed 16-bit little
// endian mono.
const (
	SampleRate     = 22050
	Channels       = 1
	BytesPerSample = 2
)

// Duration returns how long pcm takes to play at SampleRate.
func Duration(pcm []byte) time.Duration {
	samples := len(pcm) / (BytesPerSample * Channels)
	return time.Duration(samples) * time.Second / SampleRate
}
