package punishment

import (
	"time"

	"github.com/google/uuid"
)

// Punishment is an immutable moderation action against a player.
type Punishment struct {
	// ID uniquely identifies this application of the punishment.
	ID uuid.UUID
	// RecordID is the store row id, or 0 if the punishment was never persisted.
	RecordID int64

	Target     uuid.UUID
	TargetName string
	Actor      uuid.UUID
	ActorName  string
	Source     Source

	Type Type
	// Duration is the length of the punishment. A zero duration is permanent.
	Duration time.Duration
	Reason   string
	Silent   bool
	// Extra carries kind specific data, such as the location a jailed player is restored to.
	Extra string

	CreatedAt time.Time
}

// New creates a punishment of the given type issued within ctx.
func New(t Type, target Target, ctx ExecutionContext, reason string, duration time.Duration) Punishment {
	return Punishment{
		ID:         uuid.New(),
		Target:     target.UUID,
		TargetName: target.Name,
		Actor:      ctx.Issuer,
		ActorName:  ctx.IssuerName,
		Source:     ctx.Source,
		Type:       t,
		Duration:   duration,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
}

// Permanent reports whether the punishment never expires.
func (p Punishment) Permanent() bool {
	return p.Duration <= 0
}

// ExpiresAt returns the moment the punishment expires, or the zero time if it is permanent.
func (p Punishment) ExpiresAt() time.Time {
	if p.Permanent() {
		return time.Time{}
	}
	return p.CreatedAt.Add(p.Duration)
}

// Expired reports whether a timed punishment has run out at now.
func (p Punishment) Expired(now time.Time) bool {
	return !p.Permanent() && !now.Before(p.ExpiresAt())
}

// Remaining returns the time left until the punishment expires.
func (p Punishment) Remaining(now time.Time) time.Duration {
	if p.Permanent() {
		return 0
	}
	return max(p.ExpiresAt().Sub(now), 0)
}

// Target identifies the player a moderation action is aimed at.
type Target struct {
	UUID uuid.UUID
	Name string
}

// Display returns the best available name for the target.
func (t Target) Display() string {
	if t.Name != "" {
		return t.Name
	}
	return t.UUID.String()
}
