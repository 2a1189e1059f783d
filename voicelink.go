// Package voicelink is a high-level, user-friendly API for realtime voice
// sessions. It wraps the session controller, microphone capture and speaker
// playback behind a single Conversation type so a caller can go live with a
// few lines of code.
package voicelink

import (
	"context"
	"fmt"

	"github.com/coachery-ai/voicelink/pkg/metrics"
	"github.com/coachery-ai/voicelink/pkg/playback"
	"github.com/coachery-ai/voicelink/pkg/providers/search"
	"github.com/coachery-ai/voicelink/pkg/session"
	"github.com/coachery-ai/voicelink/pkg/tools"
)

// Conversation is a ready-made voice session: speak into the default
// microphone, hear the model through the default speakers.
//
// Example:
//
//	conv := voicelink.New("api-key")
//	conv.SetInstructions("You are a friendly fitness coach")
//	conv.Go(ctx, voicelink.Callbacks{
//		OnInputTranscript: func(text string) { fmt.Println("you:", text) },
//	})
//	defer conv.Close()
type Conversation struct {
	cfg       session.Config
	ctrl      *session.Controller
	scheduler *playback.Scheduler
	web       tools.WebSearcher
	maps      tools.MapsSearcher
	logger    session.Logger
	metrics   *metrics.Metrics
}

// Callbacks re-exports the session callback set.
type Callbacks = session.Callbacks

// Option configures a Conversation.
type Option func(*Conversation)

// WithVoice selects the model's voice.
func WithVoice(voice string) Option {
	return func(c *Conversation) { c.cfg.Voice = voice }
}

// WithModel overrides the conversational model.
func WithModel(model string) Option {
	return func(c *Conversation) { c.cfg.Model = model }
}

// WithEndpoint points the conversation at a different service endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Conversation) { c.cfg.Endpoint = endpoint }
}

// WithWebSearch enables the web search tool via Tavily.
func WithWebSearch(tavilyAPIKey string) Option {
	return func(c *Conversation) {
		c.cfg.UseWebSearch = true
		c.web = search.NewTavilyWebSearch(tavilyAPIKey)
	}
}

// WithMapsSearch enables the place search tool via Google Places.
func WithMapsSearch(mapsAPIKey string) Option {
	return func(c *Conversation) {
		c.cfg.UseMapsSearch = true
		c.maps = search.NewGooglePlacesSearch(mapsAPIKey)
	}
}

// WithLogger installs a logger on the underlying controller.
func WithLogger(logger session.Logger) Option {
	return func(c *Conversation) { c.logger = logger }
}

// WithMetrics enables Prometheus instrumentation under the given namespace.
func WithMetrics(namespace string) Option {
	return func(c *Conversation) { c.metrics = metrics.New(namespace) }
}

// New creates a conversation with sensible defaults: 16kHz mono capture,
// 24kHz mono playback, no tools enabled.
func New(apiKey string, opts ...Option) *Conversation {
	c := &Conversation{cfg: session.DefaultConfig()}
	c.cfg.APIKey = apiKey
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetVoice changes the voice for the next session.
func (c *Conversation) SetVoice(voice string) {
	c.cfg.Voice = voice
}

// SetInstructions sets the system personality text for the next session.
func (c *Conversation) SetInstructions(instructions string) {
	c.cfg.Instructions = instructions
}

// Go opens the audio devices and starts a live session. Calling Go while a
// session is running restarts it with the current settings.
func (c *Conversation) Go(ctx context.Context, cb Callbacks) (string, error) {
	if c.scheduler == nil {
		sink, err := playback.NewOtoSink(c.cfg.OutputSampleRate, 1)
		if err != nil {
			return "", fmt.Errorf("open speakers: %w", err)
		}
		c.scheduler = playback.NewScheduler(sink)
	}
	if c.ctrl == nil {
		c.ctrl = session.NewController(session.Deps{
			Player:  c.scheduler,
			Web:     c.web,
			Maps:    c.maps,
			Logger:  c.logger,
			Metrics: c.metrics,
		})
	}
	return c.ctrl.Start(ctx, c.cfg, cb)
}

// Stop ends the current session but keeps the speakers open for a restart.
func (c *Conversation) Stop() error {
	if c.ctrl == nil {
		return nil
	}
	return c.ctrl.Stop()
}

// State reports the session lifecycle state.
func (c *Conversation) State() session.State {
	if c.ctrl == nil {
		return session.StateIdle
	}
	return c.ctrl.State()
}

// SessionID returns the id of the running session, or "".
func (c *Conversation) SessionID() string {
	if c.ctrl == nil {
		return ""
	}
	return c.ctrl.SessionID()
}

// InputLevel reports the live microphone RMS level, or 0 when no session
// is running.
func (c *Conversation) InputLevel() float64 {
	if c.ctrl == nil {
		return 0
	}
	return c.ctrl.InputLevel()
}

// Metrics exposes the Prometheus instruments when WithMetrics was used.
func (c *Conversation) Metrics() *metrics.Metrics {
	return c.metrics
}

// Close stops the session and releases the output device.
func (c *Conversation) Close() error {
	err := c.Stop()
	if c.scheduler != nil {
		if cerr := c.scheduler.Close(); err == nil {
			err = cerr
		}
		c.scheduler = nil
	}
	return err
}
