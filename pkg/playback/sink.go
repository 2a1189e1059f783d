// Package playback schedules decoded model audio onto an output device so
// that consecutive chunks play back to back with no gaps, and the whole
// pipeline can be cut dead the moment the speaker barges in.
package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink is where scheduled PCM eventually lands. Write appends 16-bit
// little-endian PCM, Flush discards everything not yet audible.
type Sink interface {
	Write(pcm []byte) error
	Flush() error
	Close() error
}

// OtoSink plays PCM through the default output device via oto. It feeds a
// single long-lived player from an internal buffer so chunk boundaries are
// inaudible.
type OtoSink struct {
	otoCtx *oto.Context
	player *oto.Player

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

// NewOtoSink opens the default output device for 16-bit PCM at the given
// format. The call blocks until the audio context is ready.
func NewOtoSink(sampleRate, channels int) (*OtoSink, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open output device: %w", err)
	}
	<-ready

	s := &OtoSink{otoCtx: otoCtx}
	s.cond = sync.NewCond(&s.mu)
	s.player = otoCtx.NewPlayer(s)
	s.player.Play()
	return s, nil
}

// Write queues PCM for playback.
func (s *OtoSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink closed")
	}
	s.buf = append(s.buf, pcm...)
	s.cond.Broadcast()
	return nil
}

// Flush drops all queued audio, including what oto has already pulled into
// its own buffer.
func (s *OtoSink) Flush() error {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()

	s.player.Reset()
	s.player.Play()
	return nil
}

// Close releases the device.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	return s.player.Close()
}

// Read feeds the oto player. It blocks until audio is queued so the player
// never spins on an empty buffer.
func (s *OtoSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
	return n, nil
}
