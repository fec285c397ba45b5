package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/cromulus/reminders-cli-sub001/filter"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("webhook registry is closed")

const filePerms = 0o600

// Update lists the fields to change. Nil fields are left as they are; the
// id can never change.
type Update struct {
	URL    *string
	Name   *string
	Active *bool
	Filter *filter.Filter
}

// Registry holds the subscriptions and persists the whole list to a JSON
// file after every mutation. All access goes through one lock; readers get
// copies.
type Registry struct {
	mu     sync.RWMutex
	path   string
	subs   []Subscription
	closed bool
}

// NewRegistry loads subscriptions from path. A missing file starts empty;
// an unreadable or invalid one also starts empty and is logged. An empty
// path keeps subscriptions in memory only.
func NewRegistry(path string) *Registry {
	r := &Registry{path: path}
	if path == "" {
		return r
	}

	subs, err := loadSubscriptions(path)
	if err != nil {
		slog.Warn("failed to load webhook subscriptions, starting empty", "path", path, "error", err)
		return r
	}
	r.subs = subs
	slog.Debug("webhook subscriptions loaded", "path", path, "count", len(subs))
	return r
}

func loadSubscriptions(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	// the file may carry comments and trailing commas
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}
	var subs []Subscription
	if err := json.Unmarshal(standardized, &subs); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	valid := subs[:0]
	for _, s := range subs {
		if s.ID == "" {
			slog.Warn("skipping webhook subscription without id", "url", s.URL)
			continue
		}
		if s.Filter == nil {
			s.Filter = &filter.Filter{}
		}
		valid = append(valid, s)
	}
	return valid, nil
}

// Path returns the backing file, empty for a memory-only registry.
func (r *Registry) Path() string {
	return r.path
}

// persistLocked writes subs to disk. Callers hold the write lock.
func (r *Registry) persistLocked(subs []Subscription) error {
	if r.path == "" {
		return nil
	}
	if subs == nil {
		subs = []Subscription{}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create webhook directory: %w", err)
	}
	if err := atomic.WriteFile(r.path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(r.path, filePerms); err != nil {
		slog.Warn("failed to set webhook file permissions", "path", r.path, "error", err)
	}
	return nil
}

// commitLocked persists next and installs it only when the write succeeds,
// so a failed write leaves the in-memory list untouched.
func (r *Registry) commitLocked(next []Subscription) error {
	if err := r.persistLocked(next); err != nil {
		return err
	}
	r.subs = next
	return nil
}

// Add registers a new active subscription.
func (r *Registry) Add(rawURL string, f *filter.Filter, name string) (Subscription, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Subscription{}, err
	}
	if f == nil {
		f = &filter.Filter{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Subscription{}, ErrClosed
	}

	sub := Subscription{
		ID:     uuid.NewString(),
		URL:    strings.TrimSpace(rawURL),
		Name:   strings.TrimSpace(name),
		Active: true,
		Filter: f,
	}
	next := append(r.cloneLocked(), sub)
	if err := r.commitLocked(next); err != nil {
		return Subscription{}, err
	}

	slog.Info("webhook subscription added", "subscription_id", sub.ID, "url", sub.URL, "filter", f.String())
	return sub, nil
}

// Update changes the given fields of a subscription. It reports false when
// no subscription has id. An update that changes nothing succeeds without
// touching the file.
func (r *Registry) Update(id string, u Update) (bool, error) {
	if u.URL != nil {
		if err := ValidateURL(*u.URL); err != nil {
			return false, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}

	idx := r.indexLocked(id)
	if idx < 0 {
		return false, nil
	}

	sub := r.subs[idx]
	changed := false
	if u.URL != nil && strings.TrimSpace(*u.URL) != sub.URL {
		sub.URL = strings.TrimSpace(*u.URL)
		changed = true
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) != sub.Name {
		sub.Name = strings.TrimSpace(*u.Name)
		changed = true
	}
	if u.Active != nil && *u.Active != sub.Active {
		sub.Active = *u.Active
		changed = true
	}
	if u.Filter != nil && (u.Filter.String() != sub.Filter.String() || u.Filter.Source() != sub.Filter.Source()) {
		sub.Filter = u.Filter
		changed = true
	}
	if !changed {
		return true, nil
	}

	next := r.cloneLocked()
	next[idx] = sub
	if err := r.commitLocked(next); err != nil {
		return false, err
	}

	slog.Info("webhook subscription updated", "subscription_id", id)
	return true, nil
}

// Remove deletes a subscription, reporting false when none has id.
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}

	idx := r.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	next := make([]Subscription, 0, len(r.subs)-1)
	next = append(next, r.subs[:idx]...)
	next = append(next, r.subs[idx+1:]...)
	if err := r.commitLocked(next); err != nil {
		return false, err
	}

	slog.Info("webhook subscription removed", "subscription_id", id)
	return true, nil
}

// List returns all subscriptions in registration order.
func (r *Registry) List() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cloneLocked()
}

// Get returns the subscription with id.
func (r *Registry) Get(id string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(id); idx >= 0 {
		return r.subs[idx], true
	}
	return Subscription{}, false
}

// Active returns the subscriptions that currently receive deliveries.
func (r *Registry) Active() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []Subscription
	for _, s := range r.subs {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// Close stops the registry from accepting mutations. Reads keep working.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Registry) indexLocked(id string) int {
	id = strings.TrimSpace(id)
	for i, s := range r.subs {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// cloneLocked copies the slice; filters are immutable and shared.
func (r *Registry) cloneLocked() []Subscription {
	out := make([]Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}
