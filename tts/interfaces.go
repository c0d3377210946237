// Package tts defines the speech engine capability used by recite and the
// audio-backed engine that the offline and online synthesizers plug into.
package tts

import (
	"context"
)

// Engine is the capability every speech backend provides.
//
// Speak is non-blocking: the outcome of an utterance is reported through the
// UtteranceListener on an engine-owned goroutine. After Stop returns, no
// callback for an utterance issued before the Stop is delivered.
type Engine interface {
	// Init prepares the engine for use with the given configuration.
	Init(ctx context.Context, config EngineConfig) error

	// Speak queues text for synthesis and playback, replacing any utterance
	// that is still in flight.
	Speak(text, utteranceID string) error

	// Pause suspends audio output of the current utterance.
	Pause() error

	// Resume continues a paused utterance.
	Resume() error

	// Stop aborts the current utterance and silences its callbacks.
	Stop() error

	// SetLanguage changes the synthesis language (e.g. "en", "de").
	SetLanguage(lang string) error

	// SetRate changes the speech rate multiplier (1.0 = normal).
	SetRate(rate float64) error

	// SetListener registers the receiver of utterance callbacks.
	SetListener(l UtteranceListener)

	// Close releases the engine's resources.
	Close() error
}

// UtteranceListener receives asynchronous utterance events from an Engine.
// Calls arrive on an engine goroutine and must not block for long.
type UtteranceListener interface {
	OnStart(utteranceID string)
	OnDone(utteranceID string)
	OnError(utteranceID string, code ErrorCode)
}

// Synthesizer turns text into raw PCM audio (signed 16-bit little endian,
// mono, at SampleRate Hz).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, config EngineConfig) ([]byte, error)

	// Name identifies the synthesizer in logs and cache keys.
	Name() string

	// SampleRate is the rate of the PCM produced by Synthesize.
	SampleRate() int
}

// AudioPlayer plays PCM audio produced by a Synthesizer.
type AudioPlayer interface {
	// Play blocks until the audio finished playing, Stop was called, or ctx
	// was cancelled.
	Play(ctx context.Context, pcm []byte) error

	// Pause temporarily stops output.
	Pause() error

	// Resume continues output after Pause.
	Resume() error

	// Stop halts output and makes a blocked Play return.
	Stop() error

	// SetVolume sets the output volume (0.0 to 1.0).
	SetVolume(volume float64)

	// Close releases the audio device.
	Close() error
}

// AudioCache stores synthesized audio keyed by text and voice settings.
type AudioCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, audio []byte) error
}

// EngineConfig holds the voice settings shared by every engine.
type EngineConfig struct {
	Language string  // Language code, e.g. "en"
	Rate     float64 // Speech rate multiplier (1.0 = normal)
	Volume   float64 // Output volume (0.0 to 1.0)
}

// DefaultEngineConfig returns the settings used when nothing is configured.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Language: "en",
		Rate:     1.0,
		Volume:   1.0,
	}
}
