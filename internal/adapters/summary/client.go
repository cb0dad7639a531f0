// Package summary posts the flushed transcript to the clinical
// summarization service.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/curaline/consult/internal/domain"
)

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

type request struct {
	SessionID  string `json:"sessionId"`
	Transcript string `json:"transcript"`
	SubjectID  string `json:"subjectId"`
}

func (c *Client) Summarize(ctx context.Context, id domain.SessionID, transcript, subjectID string) error {
	body, err := json.Marshal(request{
		SessionID:  string(id),
		Transcript: transcript,
		SubjectID:  subjectID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("summarize: status %d", resp.StatusCode)
	}
	return nil
}
