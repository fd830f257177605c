// Package remote asks an external HTTP endpoint to answer a question.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/comigor/unichat/internal/config"
)

// ErrMalformedAnswer is returned when a 2xx body carries no answer string.
var ErrMalformedAnswer = errors.New("remote: malformed answer")

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer *string `json:"answer"`
}

// Client is a client for the /api/ask endpoint
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a new Client
func NewClient(cfg config.RemoteConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Answer posts the question once and returns the answer text. Transport
// errors, non-2xx statuses and bodies without an "answer" string all fail.
func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out askResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}
	if out.Answer == nil {
		return "", fmt.Errorf("%w: missing answer field", ErrMalformedAnswer)
	}
	return *out.Answer, nil
}
