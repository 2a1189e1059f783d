// Package search implements the external query collaborators the tool
// dispatcher calls into: Tavily for web search and Google Places for
// location queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coachery-ai/voicelink/pkg/tools"
)

// TavilyWebSearch implements tools.WebSearcher over the Tavily search API.
type TavilyWebSearch struct {
	apiKey string
	url    string
}

func NewTavilyWebSearch(apiKey string) *TavilyWebSearch {
	return &TavilyWebSearch{
		apiKey: apiKey,
		url:    "https://api.tavily.com/search",
	}
}

func (s *TavilyWebSearch) SearchWeb(ctx context.Context, query string) (*tools.WebSearchResult, error) {
	payload := map[string]interface{}{
		"query":          query,
		"max_results":    5,
		"include_answer": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("tavily search error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	out := &tools.WebSearchResult{Text: result.Answer}
	for _, r := range result.Results {
		out.Results = append(out.Results, tools.WebResult{URI: r.URL, Title: r.Title})
	}
	if out.Text == "" {
		out.Text = fmt.Sprintf("%d results found for %q", len(out.Results), query)
	}

	return out, nil
}
