package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haugli/meetflow/config"
)

const defaultTimeout = 5 * time.Second

// Client talks to the calendar provider's REST API. Calls carry a short
// timeout so a hung provider fails the request instead of hanging it.
type Client struct {
	baseURL    string
	apiKey     string
	calendarID string
	httpClient *http.Client
}

// NewClient builds a calendar client from config.
func NewClient(cfg config.CalendarConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		calendarID: calendarID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type freeBusyRequest struct {
	CalendarID string    `json:"calendar_id"`
	TimeMin    time.Time `json:"time_min"`
	TimeMax    time.Time `json:"time_max"`
}

type freeBusyResponse struct {
	Busy []Interval `json:"busy"`
}

// FreeBusy fetches all busy intervals in [from, to] with a single call.
func (c *Client) FreeBusy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	var resp freeBusyResponse
	err := c.post(ctx, "/v1/freebusy", freeBusyRequest{
		CalendarID: c.calendarID,
		TimeMin:    from,
		TimeMax:    to,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy: %w", err)
	}
	return resp.Busy, nil
}

type createEventRequest struct {
	CalendarID          string    `json:"calendar_id"`
	Summary             string    `json:"summary"`
	Description         string    `json:"description,omitempty"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	Attendees           []string  `json:"attendees"`
	ConferenceRequestID string    `json:"conference_request_id"`
}

// CreateEvent creates the event and asks the provider for a conferencing link.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*Event, error) {
	var event Event
	err := c.post(ctx, "/v1/events", createEventRequest{
		CalendarID:          c.calendarID,
		Summary:             input.Summary,
		Description:         input.Description,
		Start:               input.Start,
		End:                 input.End,
		Attendees:           input.Attendees,
		ConferenceRequestID: input.RequestID,
	}, &event)
	if err != nil {
		return nil, fmt.Errorf("calendar: create event: %w", err)
	}
	return &event, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
