package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coachery-ai/voicelink/pkg/realtime"
)

// ResultSender delivers correlated tool results back over the wire.
// *realtime.Conn satisfies it.
type ResultSender interface {
	SendToolResult(realtime.ToolCallResult) error
}

// Dispatcher runs tool calls concurrently and guarantees that every request
// is answered exactly once, success or failure. A request that cannot be
// served (unknown tool, disabled collaborator, query error) still gets a
// result carrying an error payload, because an unanswered call stalls the
// remote turn forever.
type Dispatcher struct {
	sender ResultSender
	web    WebSearcher
	maps   MapsSearcher
	acc    accumulator
	wg     sync.WaitGroup

	onStart  func(name, query string)
	onResult func(name string, failed bool)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCallObserver installs callbacks fired when a call starts and when its
// result has been sent.
func WithCallObserver(onStart func(name, query string), onResult func(name string, failed bool)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onStart = onStart
		d.onResult = onResult
	}
}

// NewDispatcher builds a dispatcher over the given collaborators. Either
// searcher may be nil, in which case calls to it are answered with an error
// result.
func NewDispatcher(sender ResultSender, web WebSearcher, maps MapsSearcher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{sender: sender, web: web, maps: maps}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleCalls launches one goroutine per call in the batch. It returns
// immediately; completion order is irrelevant because correlation is by
// call id.
func (d *Dispatcher) HandleCalls(ctx context.Context, calls []realtime.ToolCallRequest) {
	for _, call := range calls {
		d.wg.Add(1)
		go func(call realtime.ToolCallRequest) {
			defer d.wg.Done()
			d.run(ctx, call)
		}(call)
	}
}

func (d *Dispatcher) run(ctx context.Context, call realtime.ToolCallRequest) {
	if d.onStart != nil {
		d.onStart(call.Name, call.Query)
	}

	result, err := d.execute(ctx, call)

	res := realtime.ToolCallResult{CallID: call.CallID}
	if err != nil {
		res.Err = err.Error()
	} else {
		res.Result = result
	}

	failed := res.Err != ""

	// A result arriving after the session closed is dropped on purpose:
	// the turn it belonged to is gone.
	if err := d.sender.SendToolResult(res); err != nil && !errors.Is(err, realtime.ErrSessionClosed) {
		failed = true
	}

	if d.onResult != nil {
		d.onResult(call.Name, failed)
	}
}

func (d *Dispatcher) execute(ctx context.Context, call realtime.ToolCallRequest) (map[string]any, error) {
	switch call.Name {
	case ToolSearchWeb:
		if d.web == nil {
			return nil, fmt.Errorf("web search is not enabled for this session")
		}
		out, err := d.web.SearchWeb(ctx, call.Query)
		if err != nil {
			return nil, fmt.Errorf("web search: %w", err)
		}
		d.acc.addWeb(out.Results)
		return map[string]any{"text": out.Text}, nil

	case ToolSearchMaps:
		if d.maps == nil {
			return nil, fmt.Errorf("maps search is not enabled for this session")
		}
		out, err := d.maps.SearchMaps(ctx, call.Query)
		if err != nil {
			return nil, fmt.Errorf("maps search: %w", err)
		}
		d.acc.addPlaces(out.Results)
		return map[string]any{"text": out.Text}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

// FlushTurn returns everything gathered since the last flush and resets the
// accumulator for the next turn.
func (d *Dispatcher) FlushTurn() TurnResults {
	return d.acc.flush()
}

// Wait blocks until all in-flight calls have completed. Used by tests and
// by shutdown paths that want a clean goroutine exit.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Decls advertises the enabled tools for the session setup message. Nil
// searchers are simply not declared.
func Decls(web WebSearcher, maps MapsSearcher) []realtime.ToolDecl {
	var decls []realtime.ToolDecl
	if web != nil {
		decls = append(decls, realtime.ToolDecl{
			Name:        ToolSearchWeb,
			Description: "Search the web for current information",
		})
	}
	if maps != nil {
		decls = append(decls, realtime.ToolDecl{
			Name:        ToolSearchMaps,
			Description: "Find places, businesses and locations",
		})
	}
	return decls
}

// Decls lists the tools this dispatcher can serve.
func (d *Dispatcher) Decls() []realtime.ToolDecl {
	return Decls(d.web, d.maps)
}
