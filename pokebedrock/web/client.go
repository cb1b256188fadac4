// Package web implements the intake of moderation commands queued on the external web panel: the claim
// handshake, periodic polling, deduplicated execution and acknowledgements.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/df-mc/atomic"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/internal"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
)

// Config holds the web panel endpoints.
type Config struct {
	// URL is the base URL of the panel. Acknowledgements are posted below it.
	URL string
	// PollURL is the endpoint returning pending commands. Polling is skipped while it is empty.
	PollURL string
	// ClaimURL is the endpoint the claim token is posted to.
	ClaimURL string
	// PollInterval is the pause between polls. Zero or less disables polling.
	PollInterval time.Duration

	// RetryWait and RetryMax tune acknowledgement retries. Zero values use the defaults.
	RetryWait time.Duration
	RetryMax  int
}

// Client performs the HTTP exchanges with the web panel on behalf of one server identity.
type Client struct {
	log  *slog.Logger
	http *http.Client
	conf Config

	serverID string
	secret   string
	claimed  atomic.Bool
}

// NewClient returns a client presenting id to the panel.
func NewClient(log *slog.Logger, conf Config, id storage.Identity) *Client {
	c := &Client{
		log: log,
		http: internal.NewClient(internal.ClientConfig{
			Log:       log.With("subsystem", "web"),
			RetryMax:  conf.RetryMax,
			RetryWait: conf.RetryWait,
		}),
		conf:     conf,
		serverID: id.ServerID,
		secret:   id.Secret,
	}
	c.claimed.Store(id.Claimed)
	return c
}

// Claimed reports whether the panel accepted this server's claim.
func (c *Client) Claimed() bool {
	return c.claimed.Load()
}

// markClaimed ...
func (c *Client) markClaimed() {
	c.claimed.Store(true)
}

// Claim posts the claim token to the claim endpoint and reports whether the panel accepted it.
func (c *Client) Claim(ctx context.Context, token string) (bool, error) {
	if c.conf.ClaimURL == "" {
		return false, nil
	}
	body, err := json.Marshal(map[string]string{"claim_token": token})
	if err != nil {
		return false, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.conf.ClaimURL, body)
	if err != nil {
		return false, fmt.Errorf("claim server: %w", err)
	}
	defer drain(resp)
	return resp.StatusCode == http.StatusOK, nil
}

// Poll fetches the pending commands for this server.
func (c *Client) Poll(ctx context.Context) ([]Intent, error) {
	resp, err := c.do(ctx, http.MethodGet, c.conf.PollURL, nil)
	if err != nil {
		return nil, fmt.Errorf("poll commands: %w", err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("poll commands: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}
	return DecodeIntents(body)
}

// ackURL ...
func (c *Client) ackURL(commandID string) string {
	return strings.TrimRight(c.conf.URL, "/") + "/api/v1/server/commands/" + commandID + "/ack"
}

// sendAck posts the outcome of a command and returns the status code of the final attempt.
func (c *Client) sendAck(ctx context.Context, a ack) (int, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.ackURL(a.CommandID), body)
	if err != nil {
		return 0, err
	}
	defer drain(resp)
	return resp.StatusCode, nil
}

// do sends a request carrying the server identity headers.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Server-ID", c.serverID)
	req.Header.Set("X-Server-Secret", c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	return c.http.Do(req)
}

// drain ...
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
