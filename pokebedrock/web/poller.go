package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// pollTimeout bounds a single claim or poll exchange.
const pollTimeout = 10 * time.Second

// ErrUnauthorized is returned when the panel rejects the server credentials.
var ErrUnauthorized = errors.New("web panel rejected the server credentials")

// ClaimStore holds the claim state of this server.
type ClaimStore interface {
	ClaimToken(ctx context.Context) (string, bool, error)
	CompleteClaim(ctx context.Context, token string) (bool, error)
}

// Poller periodically claims this server and pulls pending commands into the executor.
type Poller struct {
	log      *slog.Logger
	client   *Client
	store    ClaimStore
	exec     *Executor
	interval time.Duration
}

// NewPoller ...
func NewPoller(log *slog.Logger, client *Client, store ClaimStore, exec *Executor, interval time.Duration) *Poller {
	return &Poller{log: log, client: client, store: store, exec: exec, interval: interval}
}

// Bootstrap logs the identity of this server and, while it is unclaimed, the token needed to claim it.
func (p *Poller) Bootstrap(ctx context.Context) error {
	p.log.Info("web panel integration enabled", "server_id", p.client.serverID)
	if p.client.Claimed() {
		return nil
	}
	token, ok, err := p.store.ClaimToken(ctx)
	if err != nil {
		return err
	}
	if !ok {
		p.client.markClaimed()
		return nil
	}
	p.log.Info("server is not claimed yet, enter this token on the web panel", "claim_token", token)
	return nil
}

// Run polls every interval until ctx is cancelled. It returns immediately if the interval is not positive.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		p.log.Info("web panel polling disabled")
		return
	}
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Tick runs one claim attempt or poll.
func (p *Poller) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !p.client.Claimed() && p.client.conf.ClaimURL != "" {
		p.claim(ctx)
		return
	}
	if p.client.conf.PollURL == "" {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, pollTimeout)
	intents, err := p.client.Poll(pctx)
	cancel()
	switch {
	case errors.Is(err, ErrUnauthorized):
		pollsTotal.WithLabelValues("unauthorized").Inc()
		p.log.Warn("web panel poll unauthorized, check the server id and secret")
		return
	case errors.Is(err, ErrInvalidPayload):
		pollsTotal.WithLabelValues("invalid").Inc()
		p.log.Warn("web panel returned an invalid payload", "error", err)
		sentry.CaptureException(err)
		return
	case err != nil:
		pollsTotal.WithLabelValues("error").Inc()
		p.log.Warn("failed to poll web panel", "error", err)
		return
	}
	pollsTotal.WithLabelValues("ok").Inc()
	p.exec.ProcessIntents(ctx, intents)
}

// claim ...
func (p *Poller) claim(ctx context.Context) {
	token, ok, err := p.store.ClaimToken(ctx)
	if err != nil {
		p.log.Error("failed to read claim token", "error", err)
		return
	}
	if !ok {
		p.client.markClaimed()
		return
	}

	cctx, cancel := context.WithTimeout(ctx, pollTimeout)
	accepted, err := p.client.Claim(cctx, token)
	cancel()
	if err != nil {
		p.log.Warn("failed to claim server", "error", err)
		return
	}
	if !accepted {
		p.log.Warn("web panel did not accept the claim token")
		return
	}
	if _, err = p.store.CompleteClaim(ctx, token); err != nil {
		p.log.Error("failed to store completed claim", "error", err)
		return
	}
	p.client.markClaimed()
	p.log.Info("server successfully claimed")
}
