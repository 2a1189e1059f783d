// Package realtime implements the bidirectional streaming connection to the
// conversational audio service.
//
// A Conn is established with Connect, which blocks until the server
// acknowledges the session setup. After that, audio and tool results flow out
// through SendAudio/SendToolResult while inbound frames are demultiplexed
// into the Event union and delivered in arrival order on a single channel.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/coachery-ai/voicelink/pkg/audio"
)

const (
	// DefaultEndpoint is the production websocket base URL.
	DefaultEndpoint = "wss://live.coachery.ai"

	// DefaultModel is the conversational model used when none is configured.
	DefaultModel = "coach-audio-002"

	maxMessageSize = 10 * 1024 * 1024

	setupTimeout      = 15 * time.Second
	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
)

// ErrSessionClosed is returned by SendAudio and SendToolResult once the
// connection has been closed. Callers treat it as a signal to stop sending,
// not as a failure.
var ErrSessionClosed = errors.New("realtime session closed")

// ConnectError reports a failed connection attempt. Auth distinguishes
// credential problems from transport problems because they need different
// remediation upstream.
type ConnectError struct {
	Auth    bool
	Message string
	Cause   error
}

func (e *ConnectError) Error() string {
	if e.Auth {
		return fmt.Sprintf("realtime connect: authorization rejected: %s", e.Message)
	}
	return fmt.Sprintf("realtime connect: %s", e.Message)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// IsAuthError reports whether err is an authorization-class connection
// failure.
func IsAuthError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Auth
}

// Config describes one live session.
type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	Voice        string
	Instructions string
	Tools        []ToolDecl

	InputSampleRate  int
	OutputSampleRate int
}

// Conn is an established live session. All methods are safe for concurrent
// use.
type Conn struct {
	conn   *websocket.Conn
	events chan Event

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

// Connect dials the service, sends the session setup and waits for the
// server's acknowledgment. On return the session is ready to accept audio.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	wsURL := fmt.Sprintf("%s/v1/live:connect?key=%s", endpoint, cfg.APIKey)

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		auth := resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden)
		return nil, &ConnectError{Auth: auth, Message: "dial failed", Cause: err}
	}
	conn.SetReadLimit(maxMessageSize)

	setup := setupMessage{
		Setup: setupPayload{
			Model:          model,
			Voice:          cfg.Voice,
			Instructions:   cfg.Instructions,
			Tools:          cfg.Tools,
			InputMimeType:  fmt.Sprintf("audio/pcm;rate=%d", cfg.InputSampleRate),
			OutputMimeType: fmt.Sprintf("audio/pcm;rate=%d", cfg.OutputSampleRate),
		},
	}
	if err := wsjson.Write(ctx, conn, setup); err != nil {
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, &ConnectError{Message: "setup write failed", Cause: err}
	}

	if err := awaitSetupAck(ctx, conn); err != nil {
		conn.Close(websocket.StatusInternalError, "setup not acknowledged")
		return nil, err
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		conn:   conn,
		events: make(chan Event, 32),
		ctx:    connCtx,
		cancel: cancel,
	}

	go c.readLoop()
	go c.keepaliveLoop()

	return c, nil
}

// awaitSetupAck reads frames until the server acknowledges the setup. An
// error frame before the ack fails the connect; anything else is skipped.
func awaitSetupAck(ctx context.Context, conn *websocket.Conn) error {
	ackCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	for {
		_, data, err := conn.Read(ackCtx)
		if err != nil {
			return &ConnectError{Message: "connection lost before setup ack", Cause: err}
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != nil {
			return &ConnectError{
				Auth:    authStatus(msg.Error.Status),
				Message: msg.Error.Message,
			}
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

func authStatus(status string) bool {
	switch strings.ToUpper(status) {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	return false
}

// Events returns the inbound event stream. The channel closes after a Closed
// event, which is always the last one delivered.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// SendAudio transmits one encoded capture chunk.
func (c *Conn) SendAudio(chunk audio.EncodedChunk) error {
	if c.closed.Load() {
		return ErrSessionClosed
	}
	msg := realtimeAudioMessage{
		RealtimeAudio: mediaChunk{Data: chunk.Data, MimeType: chunk.MimeType()},
	}
	return c.write(msg)
}

// SendToolResult answers one tool call. Results sent after close are
// reported as ErrSessionClosed so late tool completions can be dropped
// quietly.
func (c *Conn) SendToolResult(res ToolCallResult) error {
	if c.closed.Load() {
		return ErrSessionClosed
	}
	payload := toolResponsePayload{CallID: res.CallID}
	if res.Err != "" {
		payload.Error = res.Err
	} else {
		payload.Result = res.Result
	}
	return c.write(toolResponseMessage{ToolResponse: payload})
}

func (c *Conn) write(v any) error {
	if err := wsjson.Write(c.ctx, c.conn, v); err != nil {
		if c.closed.Load() || c.ctx.Err() != nil {
			return ErrSessionClosed
		}
		return fmt.Errorf("realtime write: %w", err)
	}
	return nil
}

// Close tears the connection down. Safe to call multiple times; the event
// channel still drains through Closed before closing.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		c.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// readLoop reads frames until the connection dies and translates them into
// events. It owns the events channel and closes it on exit.
func (c *Conn) readLoop() {
	defer close(c.events)
	defer c.Close()

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil && !c.closed.Load() &&
				websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.emit(SessionError{Message: err.Error()})
			}
			c.emit(Closed{})
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // skip malformed frames
		}
		c.dispatch(&msg)
	}
}

// dispatch fans one inbound frame out to events. Field order matters: a
// frame carrying both content and turnComplete must deliver the content
// first so turn results are aggregated before the turn closes.
func (c *Conn) dispatch(msg *serverMessage) {
	if msg.InputTranscription != nil && msg.InputTranscription.Text != "" {
		c.emit(InputTranscript{Text: msg.InputTranscription.Text})
	}
	if msg.OutputTranscription != nil && msg.OutputTranscription.Text != "" {
		c.emit(OutputTranscript{Text: msg.OutputTranscription.Text})
	}
	if msg.ModelAudio != nil && msg.ModelAudio.Data != "" {
		c.emit(ModelAudio{Chunk: parseChunk(msg.ModelAudio)})
	}
	if msg.ToolCall != nil && len(msg.ToolCall.Calls) > 0 {
		calls := make([]ToolCallRequest, len(msg.ToolCall.Calls))
		for i, wc := range msg.ToolCall.Calls {
			calls[i] = ToolCallRequest{CallID: wc.ID, Name: wc.Name, Query: wc.Args.Query}
		}
		c.emit(ToolCalls{Calls: calls})
	}
	if msg.Interrupted {
		c.emit(Interrupted{})
	}
	if msg.TurnComplete {
		c.emit(TurnComplete{})
	}
	if msg.Error != nil {
		c.emit(SessionError{Message: msg.Error.Message, Auth: authStatus(msg.Error.Status)})
	}
}

// emit delivers an event in order. Delivery blocks rather than drops so the
// consumer sees every event exactly as it arrived.
func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
		// Teardown in progress. Closed still gets through below because
		// the buffered channel is only closed by this goroutine.
		select {
		case c.events <- ev:
		default:
		}
	}
}

// keepaliveLoop pings the server to keep intermediaries from idling the
// connection out.
func (c *Conn) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, keepaliveTimeout)
			_ = c.conn.Ping(pingCtx)
			cancel()
		}
	}
}
