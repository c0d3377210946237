//go:build !nocgo

package audio

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoErr     error
)

type otoDevice struct {
	ctx *oto.Context
}

// OpenDevice returns the system audio device, creating the process-wide
// audio context on first use.
func OpenDevice() (Device, error) {
	otoOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		switch runtime.GOOS {
		case "darwin":
			options.BufferSize = 100 * time.Millisecond
		case "windows":
			options.BufferSize = 80 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}

		log.Debug("audio: initializing context", "sample_rate", options.SampleRate, "buffer", options.BufferSize)

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			otoErr = fmt.Errorf("%w: %v", ErrNoDevice, err)
			return
		}
		select {
		case <-ready:
			otoContext = ctx
		case <-time.After(5 * time.Second):
			otoErr = fmt.Errorf("%w: context initialization timeout", ErrNoDevice)
		}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	return otoDevice{ctx: otoContext}, nil
}

func (d otoDevice) NewStream(r io.Reader) Stream {
	return d.ctx.NewPlayer(r)
}
