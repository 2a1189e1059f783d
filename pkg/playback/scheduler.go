package playback

import (
	"sync"
	"time"

	"github.com/coachery-ai/voicelink/pkg/audio"
)

// Clock measures position on the playback timeline. The zero point is
// whenever the scheduler was created; tests substitute a manual clock.
type Clock interface {
	Now() time.Duration
}

type systemClock struct {
	epoch time.Time
}

func (c systemClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// Scheduler places decoded chunks on a single timeline so each one starts
// exactly when its predecessor ends. The cursor only ever moves forward,
// except on Interrupt which wipes the queue and rewinds it to zero.
type Scheduler struct {
	mu     sync.Mutex
	sink   Sink
	clock  Clock
	next   time.Duration
	active map[*scheduled]struct{}
	closed bool

	onError func(error)
}

type scheduled struct {
	start *time.Timer
	done  *time.Timer
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithErrorHandler installs a callback for sink write failures, which are
// otherwise swallowed.
func WithErrorHandler(fn func(error)) SchedulerOption {
	return func(s *Scheduler) { s.onError = fn }
}

// NewScheduler builds a scheduler over the given sink.
func NewScheduler(sink Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sink:   sink,
		clock:  systemClock{epoch: time.Now()},
		active: make(map[*scheduled]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue schedules a buffer at max(cursor, now) and advances the cursor by
// the buffer's duration. It returns the chosen start position.
func (s *Scheduler) Enqueue(buf *audio.Buffer) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.next
	}

	now := s.clock.Now()
	start := s.next
	if now > start {
		start = now
	}
	dur := buf.Duration()
	s.next = start + dur

	src := &scheduled{}
	s.active[src] = struct{}{}
	src.start = time.AfterFunc(start-now, func() {
		s.play(src, buf, dur)
	})

	return start
}

func (s *Scheduler) play(src *scheduled, buf *audio.Buffer, dur time.Duration) {
	s.mu.Lock()
	if _, ok := s.active[src]; !ok {
		// Interrupted between scheduling and firing.
		s.mu.Unlock()
		return
	}
	src.done = time.AfterFunc(dur, func() {
		s.mu.Lock()
		delete(s.active, src)
		s.mu.Unlock()
	})
	sink := s.sink
	s.mu.Unlock()

	if err := sink.Write(buf.PCM); err != nil && s.onError != nil {
		s.onError(err)
	}
}

// Interrupt stops every pending and playing chunk and rewinds the cursor to
// zero, so the next Enqueue starts at the live edge.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	for src := range s.active {
		if src.start != nil {
			src.start.Stop()
		}
		if src.done != nil {
			src.done.Stop()
		}
		delete(s.active, src)
	}
	s.next = 0
	sink := s.sink
	s.mu.Unlock()

	if err := sink.Flush(); err != nil && s.onError != nil {
		s.onError(err)
	}
}

// Pending reports how many chunks are scheduled or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close interrupts everything and closes the sink.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Interrupt()
	return s.sink.Close()
}
