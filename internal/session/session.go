// Package session owns the current-user cache: an explicitly owned Manager
// injected into the layers that need it, with its lifecycle (primed on
// register/login, refreshed on profile update, torn down on logout) driven by
// the auth service.
//
// The Manager also carries the auth-ready gate: WaitForAuth resolves only
// once the merged profile is available, or after a safety timeout at which
// point a minimal fallback profile is synthesized so callers are never
// blocked indefinitely.
package session

import (
	"context"
	"sync"
	"time"
)

// DefaultFallbackTimeout bounds how long WaitForAuth blocks on a profile
// load before synthesizing a fallback profile.
const DefaultFallbackTimeout = 3 * time.Second

// fallbackName is used when a profile cannot be loaded in time.
const fallbackName = "Usuário"

// Profile is the merged current-user view: identity fields plus the profile
// document. It is the single source of truth the rest of the application
// reads for "who is the caller".
type Profile struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	PhotoURL       *string `json:"photoURL"`
	Instagram      string  `json:"instagram"`
	Phone          string  `json:"phone"`
	ShareInstagram *bool   `json:"shareInstagram"`
	SharePhone     *bool   `json:"sharePhone"`
}

// Loader fetches the merged profile for a user from the backing store.
type Loader func(ctx context.Context, userID string) (*Profile, error)

// Manager caches merged profiles per authenticated user and coordinates the
// auth-ready gate. Safe for concurrent use.
type Manager struct {
	loader  Loader
	timeout time.Duration

	mu       sync.Mutex
	profiles map[string]*Profile
	loads    map[string]chan struct{} // in-flight loads, closed on completion
}

// NewManager builds a Manager around loader. A non-positive timeout falls
// back to DefaultFallbackTimeout.
func NewManager(loader Loader, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	return &Manager{
		loader:   loader,
		timeout:  timeout,
		profiles: make(map[string]*Profile),
		loads:    make(map[string]chan struct{}),
	}
}

// Current returns the cached profile for userID, if populated.
func (m *Manager) Current(userID string) (*Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	return p, ok
}

// Set replaces the cached profile. Called on register, login, and profile
// update so every component observes the same view.
func (m *Manager) Set(p *Profile) {
	if p == nil || p.ID == "" {
		return
	}
	m.mu.Lock()
	m.profiles[p.ID] = p
	m.mu.Unlock()
}

// Clear drops the cached profile, e.g. on logout or sign-out detection.
func (m *Manager) Clear(userID string) {
	m.mu.Lock()
	delete(m.profiles, userID)
	m.mu.Unlock()
}

// WaitForAuth returns the merged profile for an authenticated user. If the
// cache is already populated it returns immediately. Otherwise it starts (or
// joins) a single in-flight load and waits until the load finishes, the
// context is canceled, or the safety timeout elapses. On timeout or load
// failure a minimal fallback profile is synthesized and cached, so repeated
// calls do not re-block.
func (m *Manager) WaitForAuth(ctx context.Context, userID, email string) *Profile {
	if p, ok := m.Current(userID); ok {
		return p
	}

	done := m.startLoad(userID)

	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(m.timeout):
	}

	if p, ok := m.Current(userID); ok {
		return p
	}

	fb := &Profile{ID: userID, Email: email, Name: fallbackName}
	m.Set(fb)
	return fb
}

// startLoad returns the in-flight load channel for userID, starting a new
// load when none is running. The channel is closed when the load completes.
func (m *Manager) startLoad(userID string) chan struct{} {
	m.mu.Lock()
	if ch, ok := m.loads[userID]; ok {
		m.mu.Unlock()
		return ch
	}
	ch := make(chan struct{})
	m.loads[userID] = ch
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.loads, userID)
			m.mu.Unlock()
			close(ch)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		p, err := m.loader(ctx, userID)
		if err != nil || p == nil {
			return
		}
		m.Set(p)
	}()
	return ch
}
