package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coachery-ai/voicelink/pkg/tools"
)

// GooglePlacesSearch implements tools.MapsSearcher over the Places API
// text search endpoint.
type GooglePlacesSearch struct {
	apiKey string
	url    string
}

func NewGooglePlacesSearch(apiKey string) *GooglePlacesSearch {
	return &GooglePlacesSearch{
		apiKey: apiKey,
		url:    "https://places.googleapis.com/v1/places:searchText",
	}
}

func (s *GooglePlacesSearch) SearchMaps(ctx context.Context, query string) (*tools.PlacesSearchResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"textQuery":      query,
		"maxResultCount": 5,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", s.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.googleMapsUri,places.reviews")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("places search error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Places []struct {
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
			GoogleMapsURI string `json:"googleMapsUri"`
			Reviews       []struct {
				Text struct {
					Text string `json:"text"`
				} `json:"text"`
				AuthorAttribution struct {
					DisplayName string `json:"displayName"`
				} `json:"authorAttribution"`
				Rating float64 `json:"rating"`
			} `json:"reviews"`
		} `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	out := &tools.PlacesSearchResult{}
	var names []string
	for _, p := range result.Places {
		place := tools.PlaceResult{
			URI:   p.GoogleMapsURI,
			Title: p.DisplayName.Text,
		}
		for _, r := range p.Reviews {
			place.Reviews = append(place.Reviews, tools.Review{
				Text:   r.Text.Text,
				Author: r.AuthorAttribution.DisplayName,
				Rating: r.Rating,
			})
		}
		out.Results = append(out.Results, place)
		names = append(names, place.Title)
	}

	if len(names) > 0 {
		out.Text = fmt.Sprintf("Found %s for %q", strings.Join(names, ", "), query)
	} else {
		out.Text = fmt.Sprintf("No places found for %q", query)
	}

	return out, nil
}
