package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/coachery-ai/voicelink/pkg/audio"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *manualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

type recordingSink struct {
	mu      sync.Mutex
	writes  [][]byte
	flushes int
	closed  bool
}

func (s *recordingSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, pcm)
	return nil
}

func (s *recordingSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// chunk builds a buffer of the given duration at 24kHz mono.
func chunk(d time.Duration) *audio.Buffer {
	samples := int(d * 24000 / time.Second)
	return audio.NewBuffer(make([]byte, samples*2), 24000, 1)
}

func TestEnqueueBackToBack(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(&recordingSink{}, WithClock(clock))

	a := s.Enqueue(chunk(100 * time.Millisecond))
	b := s.Enqueue(chunk(250 * time.Millisecond))
	c := s.Enqueue(chunk(40 * time.Millisecond))

	if a != 0 {
		t.Errorf("Expected first chunk at 0, got %v", a)
	}
	if b != 100*time.Millisecond {
		t.Errorf("Expected second chunk at 100ms, got %v", b)
	}
	if c != 350*time.Millisecond {
		t.Errorf("Expected third chunk at 350ms, got %v", c)
	}
}

func TestEnqueueNeverSchedulesInThePast(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(&recordingSink{}, WithClock(clock))

	s.Enqueue(chunk(100 * time.Millisecond))

	// A long silence from the model: the cursor (100ms) has fallen behind
	// the clock by the time the next chunk arrives.
	clock.Advance(500 * time.Millisecond)

	start := s.Enqueue(chunk(100 * time.Millisecond))
	if start != 500*time.Millisecond {
		t.Errorf("Expected chunk at the live edge 500ms, got %v", start)
	}

	// And the one after that chains off the new cursor again.
	next := s.Enqueue(chunk(100 * time.Millisecond))
	if next != 600*time.Millisecond {
		t.Errorf("Expected chunk at 600ms, got %v", next)
	}
}

func TestNonOverlapInvariant(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(&recordingSink{}, WithClock(clock))

	durs := []time.Duration{
		80 * time.Millisecond,
		10 * time.Millisecond,
		300 * time.Millisecond,
		25 * time.Millisecond,
	}

	var prevStart, prevDur time.Duration
	for i, d := range durs {
		start := s.Enqueue(chunk(d))
		if i > 0 && start < prevStart+prevDur {
			t.Errorf("Chunk %d at %v overlaps predecessor ending at %v", i, start, prevStart+prevDur)
		}
		prevStart, prevDur = start, d
		clock.Advance(5 * time.Millisecond)
	}
}

func TestInterruptResetsCursor(t *testing.T) {
	clock := &manualClock{}
	sink := &recordingSink{}
	s := NewScheduler(sink, WithClock(clock))

	s.Enqueue(chunk(200 * time.Millisecond))
	s.Enqueue(chunk(200 * time.Millisecond))
	if s.Pending() != 2 {
		t.Fatalf("Expected 2 pending chunks, got %d", s.Pending())
	}

	clock.Advance(50 * time.Millisecond)
	s.Interrupt()

	if s.Pending() != 0 {
		t.Errorf("Expected no pending chunks after interrupt, got %d", s.Pending())
	}
	sink.mu.Lock()
	flushes := sink.flushes
	sink.mu.Unlock()
	if flushes != 1 {
		t.Errorf("Expected 1 sink flush, got %d", flushes)
	}

	// Post-interrupt audio starts at the live clock, not at the stale cursor.
	start := s.Enqueue(chunk(100 * time.Millisecond))
	if start != 50*time.Millisecond {
		t.Errorf("Expected post-interrupt chunk at 50ms, got %v", start)
	}
}

func TestInterruptedChunkNeverWrites(t *testing.T) {
	clock := &manualClock{}
	sink := &recordingSink{}
	s := NewScheduler(sink, WithClock(clock))

	// Schedule far in the future so the start timer cannot have fired yet,
	// then interrupt before it does.
	clock.Advance(-time.Hour)
	s.Enqueue(chunk(100 * time.Millisecond))
	s.Interrupt()

	time.Sleep(20 * time.Millisecond)
	sink.mu.Lock()
	writes := len(sink.writes)
	sink.mu.Unlock()
	if writes != 0 {
		t.Errorf("Expected no sink writes after interrupt, got %d", writes)
	}
}

func TestCloseFlushesAndClosesSink(t *testing.T) {
	sink := &recordingSink{}
	s := NewScheduler(sink, WithClock(&manualClock{}))

	s.Enqueue(chunk(100 * time.Millisecond))
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if !sink.closed {
		t.Error("Expected sink to be closed")
	}
	if sink.flushes != 1 {
		t.Errorf("Expected 1 flush on close, got %d", sink.flushes)
	}
}

func TestEnqueueAfterCloseIsNoOp(t *testing.T) {
	sink := &recordingSink{}
	s := NewScheduler(sink, WithClock(&manualClock{}))
	s.Close()

	s.Enqueue(chunk(100 * time.Millisecond))
	if s.Pending() != 0 {
		t.Errorf("Expected no pending chunks after close, got %d", s.Pending())
	}
}
