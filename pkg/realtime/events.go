package realtime

import "github.com/coachery-ai/voicelink/pkg/audio"

// Event is the inbound protocol union. Events are delivered on a single
// channel in arrival order; consumers type-switch over the concrete kinds
// below.
type Event interface {
	eventKind() string
}

// InputTranscript is a transcript delta of what the user said.
type InputTranscript struct {
	Text string
}

// OutputTranscript is a transcript delta of what the model is saying.
type OutputTranscript struct {
	Text string
}

// ModelAudio is a chunk of synthesized speech, still base64 encoded.
type ModelAudio struct {
	Chunk audio.EncodedChunk
}

// ToolCalls is a batch of tool invocations the model wants answered before
// it finishes its turn. The batch may be empty in theory; each call carries
// its own correlation id.
type ToolCalls struct {
	Calls []ToolCallRequest
}

// ToolCallRequest identifies one tool invocation.
type ToolCallRequest struct {
	CallID string
	Name   string
	Query  string
}

// ToolCallResult answers a ToolCallRequest. Exactly one of Result or Err is
// set; an empty Err means success.
type ToolCallResult struct {
	CallID string
	Result map[string]any
	Err    string
}

// TurnComplete marks the end of a model turn.
type TurnComplete struct{}

// Interrupted signals that the user spoke over the model and playback must
// stop immediately.
type Interrupted struct{}

// SessionError is a server-reported error. Auth errors need a different
// remediation path upstream, so the distinction survives into the event.
type SessionError struct {
	Message string
	Auth    bool
}

// Closed is the last event on the channel before it closes.
type Closed struct{}

func (InputTranscript) eventKind() string  { return "input_transcript" }
func (OutputTranscript) eventKind() string { return "output_transcript" }
func (ModelAudio) eventKind() string       { return "model_audio" }
func (ToolCalls) eventKind() string        { return "tool_calls" }
func (TurnComplete) eventKind() string     { return "turn_complete" }
func (Interrupted) eventKind() string      { return "interrupted" }
func (SessionError) eventKind() string     { return "error" }
func (Closed) eventKind() string           { return "closed" }

// Kind names the event for logging and metrics.
func Kind(ev Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.eventKind()
}
