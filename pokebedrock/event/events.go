package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// PunishmentPreApply is dispatched before a punishment is persisted or enacted. Handlers may cancel it or
// change its reason, duration and silent flag.
type PunishmentPreApply struct {
	Envelope
	Punishment punishment.Punishment
}

// NewPunishmentPreApply ...
func NewPunishmentPreApply(p punishment.Punishment) *PunishmentPreApply {
	return &PunishmentPreApply{Envelope: Cancellable(), Punishment: p}
}

// SetReason ...
func (e *PunishmentPreApply) SetReason(reason string) {
	e.Punishment.Reason = reason
}

// SetDuration ...
func (e *PunishmentPreApply) SetDuration(d time.Duration) {
	e.Punishment.Duration = d
}

// SetSilent ...
func (e *PunishmentPreApply) SetSilent(silent bool) {
	e.Punishment.Silent = silent
}

// PunishmentApplied is dispatched once a punishment has been persisted and enacted.
type PunishmentApplied struct {
	Envelope
	Punishment punishment.Punishment
}

// PunishmentExpired is dispatched when an active punishment is lifted, either by staff or because it ran out.
type PunishmentExpired struct {
	Envelope
	Punishment punishment.Punishment
	// Lifter is the actor that lifted the punishment.
	Lifter punishment.ExecutionContext
}

// StateKind is a moderation state a player can be in.
type StateKind string

const (
	StateBanned StateKind = "BANNED"
	StateMuted  StateKind = "MUTED"
	StateFrozen StateKind = "FROZEN"
	StateJailed StateKind = "JAILED"
)

// PlayerModerationStateChange is dispatched when a player enters or leaves a moderation state.
type PlayerModerationStateChange struct {
	Envelope
	Player  uuid.UUID
	State   StateKind
	Enabled bool
}

// StaffAction is the payload shared by every staff action event.
type StaffAction struct {
	Envelope
	Actor  uuid.UUID
	Target uuid.UUID
	Source punishment.Source
}

// NewStaffAction returns a cancellable staff action payload.
func NewStaffAction(actor, target uuid.UUID, source punishment.Source) StaffAction {
	return StaffAction{Envelope: Cancellable(), Actor: actor, Target: target, Source: source}
}

// StaffFreeze is dispatched before a player is frozen.
type StaffFreeze struct {
	StaffAction
}

// StaffUnfreeze is dispatched before a player is unfrozen.
type StaffUnfreeze struct {
	StaffAction
}

// StaffJail is dispatched before a player is jailed.
type StaffJail struct {
	StaffAction
	Duration time.Duration
	Reason   string
}

// StaffUnjail is dispatched before a player is released from jail.
type StaffUnjail struct {
	StaffAction
}

// StaffChat is dispatched when a staff member writes to a staff channel.
type StaffChat struct {
	Envelope
	Sender     uuid.UUID
	SenderName string
	Channel    string
	Message    string
}

// NewStaffChat ...
func NewStaffChat(sender uuid.UUID, name, channel, message string) *StaffChat {
	return &StaffChat{Envelope: Cancellable(), Sender: sender, SenderName: name, Channel: channel, Message: message}
}
