package tools

import "sync"

// TurnResults is everything the tools gathered during one model turn. It is
// handed to the UI when the turn completes so sources can be rendered
// alongside the spoken answer.
type TurnResults struct {
	Web    []WebResult
	Places []PlaceResult
}

// Empty reports whether the turn gathered nothing.
func (r TurnResults) Empty() bool {
	return len(r.Web) == 0 && len(r.Places) == 0
}

// accumulator collects results from concurrently running tool calls until
// the turn boundary. Writers are the per-call goroutines; the single reader
// is whoever flushes on turn completion.
type accumulator struct {
	mu      sync.Mutex
	results TurnResults
}

func (a *accumulator) addWeb(results []WebResult) {
	a.mu.Lock()
	a.results.Web = append(a.results.Web, results...)
	a.mu.Unlock()
}

func (a *accumulator) addPlaces(results []PlaceResult) {
	a.mu.Lock()
	a.results.Places = append(a.results.Places, results...)
	a.mu.Unlock()
}

// flush returns the accumulated results and resets for the next turn.
func (a *accumulator) flush() TurnResults {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.results
	a.results = TurnResults{}
	return out
}
