// Package punishment holds the value types shared by every part of the moderation engine.
package punishment

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Type identifies a kind of punishment. Types are plain values; the behaviour of each kind lives in the
// moderation service rather than in the type itself.
type Type string

// Built-in punishment types.
const (
	Ban    Type = "BAN"
	Mute   Type = "MUTE"
	Kick   Type = "KICK"
	Warn   Type = "WARN"
	Jail   Type = "JAIL"
	Freeze Type = "FREEZE"
)

// String ...
func (t Type) String() string {
	return string(t)
}

// Exclusive reports whether a player may hold at most one active punishment of this type.
func (t Type) Exclusive() bool {
	return t == Ban || t == Mute || t == Jail
}

// ErrDuplicateType is returned when a type is registered twice.
var ErrDuplicateType = errors.New("punishment type already registered")

// Registry holds every punishment type known to the server. Types are registered once at startup.
type Registry struct {
	mu    sync.RWMutex
	types []Type
}

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, t := range []Type{Ban, Mute, Kick, Warn, Jail, Freeze} {
		_ = r.Register(t)
	}
	return r
}

// Register adds a type to the registry. Type ids are case-insensitive.
func (r *Registry) Register(t Type) error {
	t = Type(strings.ToUpper(strings.TrimSpace(string(t))))
	if t == "" {
		return fmt.Errorf("register punishment type: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.types, t) {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t)
	}
	r.types = append(r.types, t)
	return nil
}

// Lookup returns the registered type matching name.
func (r *Registry) Lookup(name string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(name)))

	r.mu.RLock()
	defer r.mu.RUnlock()
	return t, slices.Contains(r.types, t)
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.types)
}
