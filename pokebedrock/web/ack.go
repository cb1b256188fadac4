package web

import (
	"context"
	"log/slog"
	"net/http"
)

// Status is the outcome reported for a command.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// ack is the body of an acknowledgement.
type ack struct {
	CommandID string `json:"commandId"`
	Status    Status `json:"status"`
	Message   string `json:"message"`
}

// Runner runs a task asynchronously. It is implemented by worker.Pool.
type Runner interface {
	Go(f func(ctx context.Context)) bool
}

// Acknowledger reports command outcomes back to the panel without blocking the caller.
type Acknowledger struct {
	log    *slog.Logger
	client *Client
	runner Runner
}

// NewAcknowledger ...
func NewAcknowledger(log *slog.Logger, client *Client, runner Runner) *Acknowledger {
	return &Acknowledger{log: log, client: client, runner: runner}
}

// Ack queues the acknowledgement of a command. Nothing is sent until the server has been claimed.
func (a *Acknowledger) Ack(commandID string, success bool, message string) {
	if !a.client.Claimed() {
		a.log.Debug("skipping acknowledgement of unclaimed server", "command", commandID)
		return
	}
	body := ack{CommandID: commandID, Status: StatusFailed, Message: message}
	if success {
		body.Status = StatusSuccess
	}
	if !a.runner.Go(func(ctx context.Context) { a.send(ctx, body) }) {
		a.log.Warn("dropped acknowledgement, worker pool closed", "command", commandID)
		ackAttempts.WithLabelValues("dropped").Inc()
	}
}

// send ...
func (a *Acknowledger) send(ctx context.Context, body ack) {
	code, err := a.client.sendAck(ctx, body)
	switch {
	case err != nil:
		a.log.Warn("failed to send acknowledgement", "command", body.CommandID, "error", err)
		ackAttempts.WithLabelValues("error").Inc()
	case code != http.StatusOK && code != http.StatusCreated:
		a.log.Warn("acknowledgement rejected", "command", body.CommandID, "status", code)
		ackAttempts.WithLabelValues("rejected").Inc()
	default:
		a.log.Debug("acknowledged command", "command", body.CommandID, "status", body.Status)
		ackAttempts.WithLabelValues("ok").Inc()
	}
}
