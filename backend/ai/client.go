// Package ai talks to the external AI responder over HTTP.
//
// The responder accepts POST {"message": prompt} and answers with
// {"response": text}. Anything else is treated as a failure.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	// responses beyond this size are not a chat reply
	maxResponseSize = 1 << 20
)

var (
	ErrRequest           = errors.New("ai request failed")
	ErrStatus            = errors.New("ai responder returned unexpected status")
	ErrMalformedResponse = errors.New("malformed ai response")
)

type (
	Request struct {
		Message string `json:"message"`
	}

	Response struct {
		Response *string `json:"response"`
	}

	Config struct {
		Logger         *zerolog.Logger
		HTTPClient     *http.Client
		Endpoint       string
		HealthEndpoint string
	}

	Client struct {
		logger   zerolog.Logger
		httpc    *http.Client
		endpoint string
		health   string
	}
)

func NewClient(cfg Config) *Client {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	return &Client{
		logger:   cfg.Logger.With().Str("component", "ai-client").Logger(),
		httpc:    httpc,
		endpoint: cfg.Endpoint,
		health:   cfg.HealthEndpoint,
	}
}

// Ask sends the prompt to the responder. The call is bounded only by ctx.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(&Request{Message: prompt})
	if err != nil {
		return "", errors.Join(ErrRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Join(ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Join(ErrRequest, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return "", errors.Join(ErrStatus, fmt.Errorf("status %d", resp.StatusCode))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", errors.Join(ErrRequest, err)
	}

	var aiResp Response
	if err = json.Unmarshal(b, &aiResp); err != nil {
		return "", errors.Join(ErrMalformedResponse, err)
	}
	if aiResp.Response == nil || *aiResp.Response == "" {
		return "", errors.Join(ErrMalformedResponse, errors.New("response field is missing or empty"))
	}

	c.logger.Debug().
		Int("promptLen", len(prompt)).
		Int("responseLen", len(*aiResp.Response)).
		Msg("ai responded")
	return *aiResp.Response, nil
}

// Ping checks that the responder health endpoint answers with 2xx.
func (c *Client) Ping(ctx context.Context) error {
	if c.health == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.health, nil)
	if err != nil {
		return errors.Join(ErrRequest, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Join(ErrRequest, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Join(ErrStatus, fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
