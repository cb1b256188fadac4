// Package banlist implements the native ban list of the server: a JSON file of banned players consulted when
// players connect.
package banlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
)

// forever is the expiry written for permanent entries.
const forever = "forever"

// entry is the on-disk form of a ban.
type entry struct {
	UUID    uuid.UUID `json:"uuid"`
	Name    string    `json:"name"`
	Created string    `json:"created"`
	Source  string    `json:"source"`
	Expires string    `json:"expires"`
	Reason  string    `json:"reason"`
}

// List is a ban list persisted to a JSON file. Every change is written to disk immediately.
type List struct {
	mu      sync.RWMutex
	path    string
	entries map[uuid.UUID]moderation.BanEntry
	now     func() time.Time
}

// Open loads the list at path. A missing file is created empty. An empty path keeps the list in memory.
func Open(path string) (*List, error) {
	l := &List{
		path:    path,
		entries: make(map[uuid.UUID]moderation.BanEntry),
		now:     time.Now,
	}
	if path == "" {
		return l, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			return l, writeJSONFile(path, []entry{})
		}
		return nil, err
	}
	if strings.TrimSpace(string(b)) == "" {
		return l, nil
	}

	var stored []entry
	if err = json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("decode ban list %s: %w", path, err)
	}
	for _, e := range stored {
		l.entries[e.UUID] = fromEntry(e)
	}
	return l, nil
}

// Has reports whether the player has an entry that has not expired.
func (l *List) Has(id uuid.UUID) bool {
	_, ok := l.Entry(id)
	return ok
}

// Entry returns the entry of the player if it has not expired.
func (l *List) Entry(id uuid.UUID) (moderation.BanEntry, bool) {
	l.mu.RLock()
	e, ok := l.entries[id]
	l.mu.RUnlock()
	if !ok || (!e.Expires.IsZero() && !l.now().Before(e.Expires)) {
		return moderation.BanEntry{}, false
	}
	return e, true
}

// Add adds or replaces the entry of a player.
func (l *List) Add(e moderation.BanEntry) error {
	l.mu.Lock()
	l.entries[e.UUID] = e
	snapshot := l.snapshot()
	l.mu.Unlock()
	return l.save(snapshot)
}

// Remove removes the entry of a player and reports whether there was one.
func (l *List) Remove(id uuid.UUID) (bool, error) {
	l.mu.Lock()
	_, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return false, nil
	}
	delete(l.entries, id)
	snapshot := l.snapshot()
	l.mu.Unlock()
	return true, l.save(snapshot)
}

// snapshot must be called with the lock held.
func (l *List) snapshot() []entry {
	now := l.now().Format(time.RFC3339)
	out := make([]entry, 0, len(l.entries))
	for _, id := range slices.SortedFunc(maps.Keys(l.entries), func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	}) {
		out = append(out, toEntry(l.entries[id], now))
	}
	return out
}

// save ...
func (l *List) save(entries []entry) error {
	if l.path == "" {
		return nil
	}
	if err := writeJSONFile(l.path, entries); err != nil {
		return fmt.Errorf("write ban list: %w", err)
	}
	return nil
}

// toEntry ...
func toEntry(e moderation.BanEntry, created string) entry {
	expires := forever
	if !e.Expires.IsZero() {
		expires = e.Expires.UTC().Format(time.RFC3339)
	}
	return entry{
		UUID:    e.UUID,
		Name:    e.Name,
		Created: created,
		Source:  e.Source,
		Expires: expires,
		Reason:  e.Reason,
	}
}

// fromEntry ...
func fromEntry(e entry) moderation.BanEntry {
	b := moderation.BanEntry{UUID: e.UUID, Name: e.Name, Reason: e.Reason, Source: e.Source}
	if e.Expires != "" && e.Expires != forever {
		if t, err := time.Parse(time.RFC3339, e.Expires); err == nil {
			b.Expires = t
		}
	}
	return b
}

// writeJSONFile writes v to a temporary file and renames it over path.
func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(v)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
