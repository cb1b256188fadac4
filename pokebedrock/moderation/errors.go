package moderation

import (
	"errors"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

var (
	// ErrBypass is returned when the target holds the bypass permission of the action.
	ErrBypass = errors.New("target bypasses this punishment")
	// ErrOffline is returned when an action requires the target to be online.
	ErrOffline = errors.New("target is offline")
	// ErrAlreadyActive is returned when the target already has an active punishment of the same type.
	ErrAlreadyActive = errors.New("punishment already active")
	// ErrNotActive is returned when lifting a punishment the target does not have.
	ErrNotActive = errors.New("punishment not active")
	// ErrNoJail is returned when jailing while no jail is configured.
	ErrNoJail = errors.New("no jail location configured")
	// ErrCancelled is returned when an event listener cancelled the action.
	ErrCancelled = errors.New("cancelled by an event listener")
	// ErrInvalidDuration is returned when a timed punishment is given no positive duration.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrUnknownPlayer is returned when a name matches no online or stored player.
	ErrUnknownPlayer = errors.New("unknown player")
)

// messageKeys maps the errors returned to staff to the locale keys describing them.
var messageKeys = []struct {
	err error
	key string
}{
	{ErrBypass, "error.bypass"},
	{ErrOffline, "error.offline"},
	{ErrAlreadyActive, "error.already_active"},
	{ErrNotActive, "error.not_active"},
	{ErrNoJail, "error.no_jail"},
	{ErrCancelled, "error.cancelled"},
	{ErrInvalidDuration, "error.invalid_duration"},
	{util.ErrInvalidDuration, "error.invalid_duration"},
	{ErrUnknownPlayer, "error.unknown_player"},
}

// MessageKey returns the locale key of the message telling staff why an action failed with err.
func MessageKey(err error) string {
	for _, m := range messageKeys {
		if errors.Is(err, m.err) {
			return m.key
		}
	}
	return "error.internal"
}
