// Package tools executes the model's mid-turn tool calls against external
// search collaborators and accumulates their structured results per turn.
package tools

import "context"

// Tool names as the model invokes them.
const (
	ToolSearchWeb  = "searchWeb"
	ToolSearchMaps = "searchMaps"
)

// WebResult is one web search hit.
type WebResult struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Review is one place review.
type Review struct {
	Text   string  `json:"text"`
	Author string  `json:"author"`
	Rating float64 `json:"rating"`
}

// PlaceResult is one place search hit.
type PlaceResult struct {
	URI     string   `json:"uri"`
	Title   string   `json:"title"`
	Reviews []Review `json:"reviews,omitempty"`
}

// WebSearchResult is the structured answer from a web search collaborator.
type WebSearchResult struct {
	Text    string
	Results []WebResult
}

// PlacesSearchResult is the structured answer from a place search
// collaborator.
type PlacesSearchResult struct {
	Text    string
	Results []PlaceResult
}

// WebSearcher answers free-text web queries.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string) (*WebSearchResult, error)
}

// MapsSearcher answers place and location queries.
type MapsSearcher interface {
	SearchMaps(ctx context.Context, query string) (*PlacesSearchResult, error)
}
