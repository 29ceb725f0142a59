package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventbot/internal/event"
)

const (
	eventbriteDefaultBaseURL = "https://www.eventbriteapi.com"
	// Eventbrite category 102 = Science & Technology.
	eventbriteTechCategory = "102"
	eventbriteMaxPages     = 3
)

// EventbriteConfig configures the Eventbrite search adapter.
type EventbriteConfig struct {
	Token    string
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

type Eventbrite struct {
	cfg    EventbriteConfig
	filter *Filter
	client *http.Client
}

func NewEventbrite(cfg EventbriteConfig, filter *Filter) *Eventbrite {
	return &Eventbrite{cfg: cfg, filter: filter, client: newHTTPClient(cfg.Timeout)}
}

func (s *Eventbrite) Name() string { return "eventbrite" }

type eventbriteSearchPage struct {
	Events []struct {
		ID   string `json:"id"`
		Name struct {
			Text string `json:"text"`
		} `json:"name"`
		Start struct {
			Local string `json:"local"`
		} `json:"start"`
		URL string `json:"url"`
	} `json:"events"`
	Pagination struct {
		HasMoreItems bool `json:"has_more_items"`
	} `json:"pagination"`
}

// Fetch searches free online tech events within the window.
func (s *Eventbrite) Fetch(ctx context.Context, w event.Window) ([]event.Event, error) {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if base == "" {
		base = eventbriteDefaultBaseURL
	}
	pageSize := s.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	var out []event.Event
	for page := 1; page <= eventbriteMaxPages; page++ {
		u, err := url.Parse(base + "/v3/events/search/")
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("categories", eventbriteTechCategory)
		q.Set("is_free", "true")
		q.Set("online_events_only", "true")
		q.Set("sort_by", "date")
		q.Set("start_date.range_start", w.From.UTC().Format("2006-01-02T15:04:05Z"))
		q.Set("start_date.range_end", w.To.UTC().Format("2006-01-02T15:04:05Z"))
		q.Set("page_size", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		if tok := strings.TrimSpace(s.cfg.Token); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("eventbrite %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}

		var body eventbriteSearchPage
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("eventbrite decode: %w", err)
		}

		for _, e := range body.Events {
			if e.ID == "" || e.URL == "" || !s.filter.Keep(e.Name.Text) {
				continue
			}
			ev := event.Event{
				ID:     "eb_" + e.ID,
				Title:  e.Name.Text,
				When:   NormalizeWhen(e.Start.Local),
				URL:    e.URL,
				Source: "Eventbrite",
			}
			if ev.Validate() != nil {
				continue
			}
			out = append(out, ev)
		}

		if !body.Pagination.HasMoreItems || len(body.Events) == 0 {
			break
		}
	}
	return out, nil
}
