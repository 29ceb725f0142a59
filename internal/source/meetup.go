package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventbot/internal/event"
)

const meetupDefaultBaseURL = "https://api.meetup.com/gql"

// MeetupConfig configures the Meetup GraphQL search adapter.
type MeetupConfig struct {
	BaseURL string
	// Queries are search terms; each is issued as a separate request.
	Queries []string
	Timeout time.Duration
}

type Meetup struct {
	cfg    MeetupConfig
	filter *Filter
	client *http.Client
}

func NewMeetup(cfg MeetupConfig, filter *Filter) *Meetup {
	return &Meetup{cfg: cfg, filter: filter, client: newHTTPClient(cfg.Timeout)}
}

func (s *Meetup) Name() string { return "meetup" }

const meetupSearchQuery = `query($query: String!, $first: Int!) {
  keywordSearch(filter: {query: $query, source: EVENTS, eventType: ONLINE}, input: {first: $first}) {
    edges { node { result { ... on Event { id title dateTime eventUrl } } } }
  }
}`

// Fetch issues one search request per configured query term and merges the
// results. Meetup's GraphQL responses vary across API revisions, so the
// payload is walked tolerantly instead of decoded into a rigid struct.
func (s *Meetup) Fetch(ctx context.Context, w event.Window) ([]event.Event, error) {
	base := strings.TrimSpace(s.cfg.BaseURL)
	if base == "" {
		base = meetupDefaultBaseURL
	}
	queries := s.cfg.Queries
	if len(queries) == 0 {
		queries = []string{"tech", "programming"}
	}

	seen := map[string]bool{}
	var out []event.Event
	var lastErr error
	for _, term := range queries {
		evs, err := s.search(ctx, base, term)
		if err != nil {
			lastErr = err
			continue
		}
		for _, ev := range evs {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (s *Meetup) search(ctx context.Context, base, term string) ([]event.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     meetupSearchQuery,
		"variables": map[string]any{"query": term, "first": 30},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("meetup %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("meetup decode: %w", err)
	}

	var out []event.Event
	for _, node := range meetupResultNodes(body) {
		id, _ := node["id"].(string)
		title, _ := node["title"].(string)
		eventURL, _ := node["eventUrl"].(string)
		when, _ := node["dateTime"].(string)
		if id == "" || eventURL == "" || !s.filter.Keep(title) {
			continue
		}
		ev := event.Event{
			ID:     "mu_" + id,
			Title:  title,
			When:   NormalizeWhen(when),
			URL:    eventURL,
			Source: "Meetup",
		}
		if ev.Validate() != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// meetupResultNodes digs data.keywordSearch.edges[].node.result out of the
// response, returning the flat result objects.
func meetupResultNodes(body map[string]any) []map[string]any {
	data, _ := body["data"].(map[string]any)
	search, _ := data["keywordSearch"].(map[string]any)
	edges, _ := search["edges"].([]any)
	out := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		em, _ := e.(map[string]any)
		node, _ := em["node"].(map[string]any)
		if res, ok := node["result"].(map[string]any); ok {
			out = append(out, res)
		}
	}
	return out
}
