// Package crm holds the thin client for the external CRM record store. The
// booking core only mirrors a handful of meeting fields onto the CRM lead.
package crm

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

// LeadFields are the fields mirrored to the CRM after a successful booking.
type LeadFields struct {
	BookedSlotIndex *int   `json:"booked_slot_index,omitempty"`
	MeetingStatus   string `json:"meeting_status,omitempty"`
	MeetingStart    string `json:"meeting_start,omitempty"`
}

// Client is the external CRM dependency.
type Client interface {
	UpdateLead(ctx context.Context, leadID string, fields LeadFields) error
}

type httpClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an HTTP-backed CRM client from config.
func NewClient(cfg config.CRMConfig) Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &httpClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) UpdateLead(ctx context.Context, leadID string, fields LeadFields) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("crm: marshal fields: %w", err)
	}

	url := fmt.Sprintf("%s/v1/leads/%s", c.baseURL, leadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: update lead: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("crm: update lead: unexpected status %d", resp.StatusCode)
	}
	return nil
}
