package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/recite/tts"
)

// pcmFor returns silence lasting d at SampleRate.
func pcmFor(d time.Duration) []byte {
	samples := int(d * SampleRate / time.Second)
	return make([]byte, samples*BytesPerSample)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		bytes int
		want  time.Duration
	}{
		{0, 0},
		{SampleRate * BytesPerSample, time.Second},
		{SampleRate, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Duration(make([]byte, tt.bytes)); got != tt.want {
			t.Errorf("Duration(%d bytes) = %v, want %v", tt.bytes, got, tt.want)
		}
	}
}

func TestPlayerPlaysToCompletion(t *testing.T) {
	p := NewPlayer(SilentDevice{})

	start := time.Now()
	if err := p.Play(context.Background(), pcmFor(60*time.Millisecond)); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Play() returned after %v, want at least 50ms", elapsed)
	}
}

func TestPlayerStop(t *testing.T) {
	p := NewPlayer(SilentDevice{})

	errc := make(chan error, 1)
	go func() { errc <- p.Play(context.Background(), pcmFor(5*time.Second)) }()

	time.Sleep(30 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Play() error = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play() did not return after Stop")
	}
}

func TestPlayerContextCancel(t *testing.T) {
	p := NewPlayer(SilentDevice{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := p.Play(ctx, pcmFor(5*time.Second)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Play() error = %v, want DeadlineExceeded", err)
	}
}

func TestPlayerPauseHoldsPlayback(t *testing.T) {
	p := NewPlayer(SilentDevice{})

	errc := make(chan error, 1)
	go func() { errc <- p.Play(context.Background(), pcmFor(40*time.Millisecond)) }()

	time.Sleep(10 * time.Millisecond)
	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	select {
	case err := <-errc:
		t.Fatalf("Play() returned while paused: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	if err := p.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Play() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play() did not finish after Resume")
	}
}

func TestPlayerIdle(t *testing.T) {
	p := NewPlayer(SilentDevice{})

	if err := p.Pause(); !errors.Is(err, tts.ErrNotPlaying) {
		t.Errorf("Pause() error = %v, want ErrNotPlaying", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() on idle player error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Play(context.Background(), pcmFor(time.Millisecond)); !errors.Is(err, ErrClosed) {
		t.Errorf("Play() after Close error = %v, want ErrClosed", err)
	}
}
