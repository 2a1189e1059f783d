// Package session hosts the top level controller for realtime voice
// sessions: one logical session at a time, started and stopped with strict
// teardown-race safety.
package session

import (
	"context"
	"time"

	"github.com/coachery-ai/voicelink/pkg/audio"
	"github.com/coachery-ai/voicelink/pkg/capture"
	"github.com/coachery-ai/voicelink/pkg/realtime"
	"github.com/coachery-ai/voicelink/pkg/tools"
)

type Logger interface {
	Debug(msg string, args ...interface{})

	Info(msg string, args ...interface{})

	Warn(msg string, args ...interface{})

	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// State is the controller's lifecycle position.
type State string

const (
	StateIdle       State = "IDLE"
	StateConnecting State = "CONNECTING"
	StateActive     State = "ACTIVE"
	StateClosing    State = "CLOSING"
)

// Config describes one session.
type Config struct {
	Voice         string
	Instructions  string
	UseWebSearch  bool
	UseMapsSearch bool

	Model    string
	Endpoint string
	APIKey   string

	InputSampleRate  int
	OutputSampleRate int
	FrameSize        int
}

// DefaultConfig returns a config with the standard audio format: 16kHz mono
// capture, 24kHz mono playback, 4096-sample frames.
func DefaultConfig() Config {
	return Config{
		InputSampleRate:  16000,
		OutputSampleRate: 24000,
		FrameSize:        4096,
	}
}

func (c *Config) applyDefaults() {
	if c.InputSampleRate == 0 {
		c.InputSampleRate = 16000
	}
	if c.OutputSampleRate == 0 {
		c.OutputSampleRate = 24000
	}
	if c.FrameSize == 0 {
		c.FrameSize = 4096
	}
}

// Callbacks is the UI boundary. Every field is optional.
type Callbacks struct {
	OnSessionStarted   func()
	OnInputTranscript  func(text string)
	OnOutputTranscript func(text string)
	OnModelAudio       func(buf *audio.Buffer)
	OnToolCallStart    func(name, query string)
	OnToolCallResult   func(name string)
	OnTurnComplete     func(results tools.TurnResults)
	OnError            func(message string, authError bool)

	// OnSessionEnded fires only when the peer ends the session, never for a
	// caller-initiated Stop.
	OnSessionEnded func()
}

func (cb Callbacks) fireSessionStarted() {
	if cb.OnSessionStarted != nil {
		cb.OnSessionStarted()
	}
}

func (cb Callbacks) fireInputTranscript(text string) {
	if cb.OnInputTranscript != nil {
		cb.OnInputTranscript(text)
	}
}

func (cb Callbacks) fireOutputTranscript(text string) {
	if cb.OnOutputTranscript != nil {
		cb.OnOutputTranscript(text)
	}
}

func (cb Callbacks) fireModelAudio(buf *audio.Buffer) {
	if cb.OnModelAudio != nil {
		cb.OnModelAudio(buf)
	}
}

func (cb Callbacks) fireToolCallStart(name, query string) {
	if cb.OnToolCallStart != nil {
		cb.OnToolCallStart(name, query)
	}
}

func (cb Callbacks) fireToolCallResult(name string) {
	if cb.OnToolCallResult != nil {
		cb.OnToolCallResult(name)
	}
}

func (cb Callbacks) fireTurnComplete(results tools.TurnResults) {
	if cb.OnTurnComplete != nil {
		cb.OnTurnComplete(results)
	}
}

func (cb Callbacks) fireError(message string, authError bool) {
	if cb.OnError != nil {
		cb.OnError(message, authError)
	}
}

func (cb Callbacks) fireSessionEnded() {
	if cb.OnSessionEnded != nil {
		cb.OnSessionEnded()
	}
}

// Conn is the protocol surface the controller drives. *realtime.Conn
// satisfies it.
type Conn interface {
	Events() <-chan realtime.Event
	SendAudio(audio.EncodedChunk) error
	SendToolResult(realtime.ToolCallResult) error
	Close() error
}

// Dialer opens the protocol connection. Swapped out in tests.
type Dialer func(ctx context.Context, cfg realtime.Config) (Conn, error)

// CaptureOpener acquires the microphone. Swapped out in tests.
type CaptureOpener func(sampleRate, frameSize int) (capture.Stage, error)

// Player schedules decoded model audio. *playback.Scheduler satisfies it.
type Player interface {
	Enqueue(buf *audio.Buffer) time.Duration
	Interrupt()
}

type noopPlayer struct{}

func (noopPlayer) Enqueue(buf *audio.Buffer) time.Duration { return 0 }
func (noopPlayer) Interrupt()                              {}
