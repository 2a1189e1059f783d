package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/coachery-ai/voicelink/pkg/audio"
	"github.com/coachery-ai/voicelink/pkg/capture"
	"github.com/coachery-ai/voicelink/pkg/metrics"
	"github.com/coachery-ai/voicelink/pkg/realtime"
	"github.com/coachery-ai/voicelink/pkg/tools"
)

// Deps are the controller's collaborators. Zero fields get working defaults,
// except the searchers which simply leave their tool disabled.
type Deps struct {
	Dial        Dialer
	OpenCapture CaptureOpener
	Player      Player
	Web         tools.WebSearcher
	Maps        tools.MapsSearcher
	Logger      Logger
	Metrics     *metrics.Metrics
}

// Controller owns at most one live session and serializes its lifecycle:
// Idle -> Connecting -> Active -> Closing -> Idle. Start and Stop are safe
// to call from any goroutine, in any order, any number of times.
type Controller struct {
	deps Deps

	mu        sync.Mutex
	state     State
	pending   *pendingConn
	sess      *activeSession
	stopping  bool
	stoppedCh chan struct{}
}

// pendingConn is the explicit record of a connect still in flight. Stop
// attaches to it: when the dial resolves, whoever requested the stop closes
// the connection instead of letting the session go active.
type pendingConn struct {
	done          chan struct{}
	conn          Conn // set before done closes; nil if the dial failed
	stopRequested bool // guarded by Controller.mu
}

type activeSession struct {
	id         string
	conn       Conn
	mic        capture.Stage
	dispatcher *tools.Dispatcher
	callbacks  Callbacks
	cancel     context.CancelFunc
	startedAt  time.Time
	loopDone   chan struct{}

	torndown   atomic.Bool
	endedOnce  sync.Once
	firstAudio sync.Once
}

// NewController wires a controller from its dependencies.
func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = &NoOpLogger{}
	}
	if deps.Player == nil {
		deps.Player = noopPlayer{}
	}
	if deps.Dial == nil {
		deps.Dial = func(ctx context.Context, cfg realtime.Config) (Conn, error) {
			conn, err := realtime.Connect(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}
	}
	if deps.OpenCapture == nil {
		deps.OpenCapture = func(sampleRate, frameSize int) (capture.Stage, error) {
			return capture.Open(sampleRate, capture.WithFrameSize(frameSize))
		}
	}
	return &Controller{deps: deps, state: StateIdle}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the id of the active session, or "" when idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

// InputLevel reports the microphone RMS level of the active session, or 0
// when none is running.
func (c *Controller) InputLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0
	}
	return c.sess.mic.Level()
}

// Start brings up a new session. If one is already connecting or active it
// is fully stopped first. On success the session id is returned and
// OnSessionStarted has fired; on failure everything acquired along the way
// has been released again.
func (c *Controller) Start(ctx context.Context, cfg Config, cb Callbacks) (string, error) {
	cfg.applyDefaults()

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.Stop()
		c.mu.Lock()
		if c.state != StateIdle {
			// A concurrent Start got in between.
			c.mu.Unlock()
			return "", ErrStartInProgress
		}
	}

	id := uuid.NewString()
	pending := &pendingConn{done: make(chan struct{})}
	c.pending = pending
	c.state = StateConnecting
	c.mu.Unlock()

	c.deps.Logger.Info("starting session", "id", id)

	mic, err := c.deps.OpenCapture(cfg.InputSampleRate, cfg.FrameSize)
	if err != nil {
		c.mu.Lock()
		close(pending.done)
		if c.pending == pending {
			c.pending = nil
		}
		if !c.stopping {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return "", fmt.Errorf("acquire microphone: %w", err)
	}

	var web tools.WebSearcher
	if cfg.UseWebSearch {
		web = c.deps.Web
	}
	var maps tools.MapsSearcher
	if cfg.UseMapsSearch {
		maps = c.deps.Maps
	}

	conn, dialErr := c.deps.Dial(ctx, realtime.Config{
		Endpoint:         cfg.Endpoint,
		APIKey:           cfg.APIKey,
		Model:            cfg.Model,
		Voice:            cfg.Voice,
		Instructions:     cfg.Instructions,
		Tools:            tools.Decls(web, maps),
		InputSampleRate:  cfg.InputSampleRate,
		OutputSampleRate: cfg.OutputSampleRate,
	})

	// Resolve the pending connect and promote to Active in one critical
	// section, so a concurrent Stop either sees the pending record (and
	// closes the resolved connection itself) or sees the live session.
	c.mu.Lock()
	pending.conn = conn
	close(pending.done)
	if pending.stopRequested || dialErr != nil {
		stopRequested := pending.stopRequested
		if c.pending == pending {
			c.pending = nil
		}
		if !c.stopping && !stopRequested {
			c.state = StateIdle
		}
		c.mu.Unlock()

		mic.Close()
		if stopRequested {
			// Stop owns the connection now that the dial has resolved.
			return "", ErrStopped
		}
		return "", fmt.Errorf("connect session: %w", dialErr)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &activeSession{
		id:        id,
		conn:      conn,
		mic:       mic,
		callbacks: cb,
		cancel:    cancel,
		startedAt: time.Now(),
		loopDone:  make(chan struct{}),
	}
	sess.dispatcher = tools.NewDispatcher(conn, web, maps, tools.WithCallObserver(
		cb.fireToolCallStart,
		func(name string, failed bool) {
			c.deps.Metrics.ToolCall(name, failed)
			cb.fireToolCallResult(name)
		},
	))
	c.pending = nil
	c.sess = sess
	c.state = StateActive
	c.mu.Unlock()

	go c.pumpAudio(sess, cfg.InputSampleRate)
	go c.eventLoop(sessCtx, sess)

	c.deps.Metrics.SessionStarted()
	cb.fireSessionStarted()
	c.deps.Logger.Info("session active", "id", id)

	return id, nil
}

// Stop tears the current session down. Concurrent and repeated calls
// collapse into a single teardown; calling Stop while a connect is still
// pending closes the connection the moment it resolves.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.stopping {
		ch := c.stoppedCh
		c.mu.Unlock()
		<-ch
		return nil
	}
	if c.state == StateIdle && c.pending == nil && c.sess == nil {
		c.mu.Unlock()
		return nil
	}

	c.stopping = true
	c.stoppedCh = make(chan struct{})
	c.state = StateClosing
	pending := c.pending
	sess := c.sess
	if pending != nil {
		pending.stopRequested = true
	}
	c.mu.Unlock()

	if pending != nil {
		<-pending.done
		if pending.conn != nil {
			pending.conn.Close()
		}
	}
	if sess != nil {
		c.teardown(sess)
	}

	c.mu.Lock()
	c.sess = nil
	c.pending = nil
	c.state = StateIdle
	c.stopping = false
	close(c.stoppedCh)
	c.mu.Unlock()

	return nil
}

func (c *Controller) teardown(sess *activeSession) {
	c.deps.Logger.Info("tearing down session", "id", sess.id)

	sess.torndown.Store(true)
	sess.cancel()
	sess.mic.Close()
	sess.conn.Close()
	<-sess.loopDone

	c.deps.Player.Interrupt()
	c.deps.Metrics.SessionEnded()
}

// pumpAudio moves mic frames onto the wire. Sends are fire-and-forget:
// transport problems surface through the event stream, not here.
func (c *Controller) pumpAudio(sess *activeSession, sampleRate int) {
	for frame := range sess.mic.Frames() {
		chunk := audio.EncodedChunk{
			Data:       audio.EncodeFloat32(frame.Samples),
			SampleRate: sampleRate,
			Channels:   1,
		}
		if err := sess.conn.SendAudio(chunk); err != nil {
			if errors.Is(err, realtime.ErrSessionClosed) {
				return
			}
			c.deps.Logger.Warn("audio send failed", "id", sess.id, "error", err)
			continue
		}
		c.deps.Metrics.AudioSent()
	}
}

// eventLoop is the single consumer of the inbound event stream, preserving
// arrival order across transcript, audio, tool and turn events.
func (c *Controller) eventLoop(ctx context.Context, sess *activeSession) {
	defer close(sess.loopDone)
	cb := sess.callbacks

	for ev := range sess.conn.Events() {
		c.deps.Metrics.Event(realtime.Kind(ev))

		switch e := ev.(type) {
		case realtime.InputTranscript:
			cb.fireInputTranscript(e.Text)

		case realtime.OutputTranscript:
			cb.fireOutputTranscript(e.Text)

		case realtime.ModelAudio:
			buf, err := audio.DecodeBuffer(e.Chunk.Data, e.Chunk.SampleRate, e.Chunk.Channels)
			if err != nil {
				c.deps.Logger.Warn("dropping undecodable audio chunk", "id", sess.id, "error", err)
				continue
			}
			sess.firstAudio.Do(func() {
				c.deps.Metrics.ObserveFirstAudioLatency(time.Since(sess.startedAt))
			})
			c.deps.Metrics.AudioReceived()
			c.deps.Player.Enqueue(buf)
			cb.fireModelAudio(buf)

		case realtime.ToolCalls:
			// Tool calls outlive a Stop on purpose: late results are
			// dropped at the send, not cancelled mid-query.
			sess.dispatcher.HandleCalls(context.WithoutCancel(ctx), e.Calls)

		case realtime.Interrupted:
			c.deps.Player.Interrupt()

		case realtime.TurnComplete:
			cb.fireTurnComplete(sess.dispatcher.FlushTurn())

		case realtime.SessionError:
			c.deps.Logger.Error("session error", "id", sess.id, "message", e.Message, "auth", e.Auth)
			cb.fireError(e.Message, e.Auth)
			if !sess.torndown.Load() {
				// Whichever terminal event arrives first drives the
				// teardown; the trailing Closed is not a peer hangup.
				sess.endedOnce.Do(func() { go c.Stop() })
			}

		case realtime.Closed:
			if !sess.torndown.Load() {
				sess.endedOnce.Do(func() {
					c.deps.Logger.Warn("session ended by peer", "id", sess.id)
					cb.fireSessionEnded()
					go c.Stop()
				})
			}
		}
	}
}
