package voicelink

import (
	"testing"

	"github.com/coachery-ai/voicelink/pkg/session"
)

func TestNewDefaults(t *testing.T) {
	conv := New("api-key")

	if conv.cfg.APIKey != "api-key" {
		t.Errorf("Expected api key to be set, got %q", conv.cfg.APIKey)
	}
	if conv.cfg.InputSampleRate != 16000 || conv.cfg.OutputSampleRate != 24000 {
		t.Errorf("Unexpected default rates %d/%d", conv.cfg.InputSampleRate, conv.cfg.OutputSampleRate)
	}
	if conv.cfg.UseWebSearch || conv.cfg.UseMapsSearch {
		t.Error("No tools should be enabled by default")
	}
	if conv.State() != session.StateIdle {
		t.Errorf("Expected IDLE before Go, got %s", conv.State())
	}
	if conv.SessionID() != "" {
		t.Errorf("Expected no session id before Go, got %q", conv.SessionID())
	}
}

func TestOptionsApply(t *testing.T) {
	conv := New("api-key",
		WithVoice("amber"),
		WithModel("coach-audio-002"),
		WithEndpoint("wss://staging.example.com"),
		WithWebSearch("tavily-key"),
		WithMapsSearch("maps-key"),
		WithMetrics("voicelink"),
	)

	if conv.cfg.Voice != "amber" || conv.cfg.Model != "coach-audio-002" {
		t.Errorf("Voice/model options not applied: %+v", conv.cfg)
	}
	if conv.cfg.Endpoint != "wss://staging.example.com" {
		t.Errorf("Endpoint option not applied: %q", conv.cfg.Endpoint)
	}
	if !conv.cfg.UseWebSearch || conv.web == nil {
		t.Error("Web search option should enable the tool and its provider")
	}
	if !conv.cfg.UseMapsSearch || conv.maps == nil {
		t.Error("Maps search option should enable the tool and its provider")
	}
	if conv.Metrics() == nil {
		t.Error("Metrics option should build an instrument set")
	}
}

func TestStopAndCloseBeforeGoAreNoOps(t *testing.T) {
	conv := New("api-key")
	if err := conv.Stop(); err != nil {
		t.Errorf("Stop before Go failed: %v", err)
	}
	if err := conv.Close(); err != nil {
		t.Errorf("Close before Go failed: %v", err)
	}
	if level := conv.InputLevel(); level != 0 {
		t.Errorf("Expected level 0 before Go, got %v", level)
	}
}

func TestSetVoiceAndInstructions(t *testing.T) {
	conv := New("api-key")
	conv.SetVoice("kai")
	conv.SetInstructions("Keep answers short.")

	if conv.cfg.Voice != "kai" || conv.cfg.Instructions != "Keep answers short." {
		t.Errorf("Setters not applied: %+v", conv.cfg)
	}
}
