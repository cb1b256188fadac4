package web

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed intents.schema.json
var intentSchema []byte

// schemaLoader is compiled once, the schema never changes at runtime.
var schemaLoader = gojsonschema.NewBytesLoader(intentSchema)

// ErrInvalidPayload is returned when a polled body does not match the intent schema.
var ErrInvalidPayload = errors.New("invalid intent payload")

// Intent is a moderation command queued on the web panel for this server.
type Intent struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	TargetUUID string `json:"targetUuid,omitempty"`
	TargetName string `json:"targetName,omitempty"`
	Reason     string `json:"reason,omitempty"`
	// DurationMillis is the length of timed punishments in milliseconds.
	DurationMillis int64  `json:"duration,omitempty"`
	IssuerUUID     string `json:"issuerUuid,omitempty"`
	IssuerName     string `json:"issuerName,omitempty"`
}

// Duration ...
func (i Intent) Duration() time.Duration {
	return time.Duration(i.DurationMillis) * time.Millisecond
}

// Issuer returns the parsed issuer uuid, or uuid.Nil if it is missing or malformed.
func (i Intent) Issuer() uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(i.IssuerUUID))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// DecodeIntents validates body against the intent schema and decodes it. A blank body decodes to no intents.
func DecodeIntents(body []byte) ([]Intent, error) {
	if strings.TrimSpace(string(body)) == "" {
		return nil, nil
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
	}

	var intents []Intent
	if err = json.Unmarshal(body, &intents); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return intents, nil
}
