// Package broker is the HTTP client for the session-broker service,
// which allocates and destroys the engine descriptor pair.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Join requests a descriptor pair. The Meeting/Attendee payloads are
// passed through unmodified to the engine.
func (c *Client) Join(ctx context.Context, id domain.SessionID) (*core.SessionDescriptor, error) {
	body, err := json.Marshal(map[string]string{"sessionId": string(id)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions/join", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker join: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("broker join: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("broker join: %w", err)
	}
	var desc core.SessionDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDescriptorMalformed, err)
	}
	if len(desc.Meeting) == 0 || len(desc.Attendee) == 0 {
		return nil, core.ErrDescriptorMalformed
	}
	return &desc, nil
}

// End notifies the broker the session is over. Callers treat failure
// as log-only; the short client timeout keeps teardown from stalling.
func (c *Client) End(ctx context.Context, id domain.SessionID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/sessions/"+string(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("broker end: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("broker end: status %d", resp.StatusCode)
	}
	log.Debug().Str("module", "adapters.broker").Str("session", string(id)).Msg("session end acknowledged")
	return nil
}
