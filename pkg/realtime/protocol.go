package realtime

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/coachery-ai/voicelink/pkg/audio"
)

// Wire shapes for the live protocol. Outbound messages are single-key
// envelopes; inbound frames are a flat envelope with exactly one field set.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model          string     `json:"model"`
	Voice          string     `json:"voice,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
	Tools          []ToolDecl `json:"tools,omitempty"`
	InputMimeType  string     `json:"inputMimeType"`
	OutputMimeType string     `json:"outputMimeType"`
}

// ToolDecl advertises a tool to the model during setup.
type ToolDecl struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type realtimeAudioMessage struct {
	RealtimeAudio mediaChunk `json:"realtimeAudio"`
}

type toolResponseMessage struct {
	ToolResponse toolResponsePayload `json:"toolResponse"`
}

type toolResponsePayload struct {
	CallID string         `json:"callId"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type mediaChunk struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type transcriptionPayload struct {
	Text string `json:"text"`
}

type wireToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args struct {
		Query string `json:"query"`
	} `json:"args"`
}

type toolCallPayload struct {
	Calls []wireToolCall `json:"calls"`
}

type wireError struct {
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// serverMessage is the inbound envelope. Unknown fields are ignored so the
// client survives server-side protocol additions.
type serverMessage struct {
	SetupComplete       json.RawMessage       `json:"setupComplete,omitempty"`
	InputTranscription  *transcriptionPayload `json:"inputTranscription,omitempty"`
	OutputTranscription *transcriptionPayload `json:"outputTranscription,omitempty"`
	ModelAudio          *mediaChunk           `json:"modelAudio,omitempty"`
	ToolCall            *toolCallPayload      `json:"toolCall,omitempty"`
	TurnComplete        bool                  `json:"turnComplete,omitempty"`
	Interrupted         bool                  `json:"interrupted,omitempty"`
	Error               *wireError            `json:"error,omitempty"`
}

// parseChunk lifts a wire media chunk into the codec's representation,
// reading the sample rate out of mime strings like "audio/pcm;rate=24000".
func parseChunk(mc *mediaChunk) audio.EncodedChunk {
	rate := 24000
	if _, param, ok := strings.Cut(mc.MimeType, ";"); ok {
		if v, found := strings.CutPrefix(strings.TrimSpace(param), "rate="); found {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rate = n
			}
		}
	}
	return audio.EncodedChunk{Data: mc.Data, SampleRate: rate, Channels: 1}
}
