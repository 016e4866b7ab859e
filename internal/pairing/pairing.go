// Package pairing mints short-lived pairing codes for bootstrapping a
// second client against the client registry: a token handed to a second
// device, redeemed exactly once before it expires.
package pairing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 5 * time.Minute

// Code is a single-use pairing token and the URL a second device should
// open to redeem it.
type Code struct {
	Token     string
	URL       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c Code) expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }

// Registry mints and redeems pairing codes. Zero value is not usable; use
// New.
type Registry struct {
	mu       sync.Mutex
	codes    map[string]Code
	now      func() time.Time
	baseURL  string
	ttl      time.Duration
	newToken func() string
}

// New constructs a Registry whose minted URLs are baseURL+"?token=...".
func New(baseURL string) *Registry {
	return &Registry{
		codes:    make(map[string]Code),
		now:      time.Now,
		baseURL:  baseURL,
		ttl:      defaultTTL,
		newToken: func() string { return uuid.NewString() },
	}
}

// Mint creates a new pairing code, evicting any codes that have already
// expired.
func (r *Registry) Mint() Code {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for token, c := range r.codes {
		if c.expired(now) {
			delete(r.codes, token)
		}
	}

	token := r.newToken()
	c := Code{
		Token:     token,
		URL:       r.baseURL + "?token=" + token,
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}
	r.codes[token] = c
	return c
}

// Redeem consumes a pairing code. It succeeds at most once per token: a
// redeemed or expired token is removed and Redeem reports false.
func (r *Registry) Redeem(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[token]
	delete(r.codes, token)
	if !ok {
		return false
	}
	return !c.expired(r.now())
}

// Pending reports how many unredeemed, unexpired codes exist.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for _, c := range r.codes {
		if !c.expired(now) {
			n++
		}
	}
	return n
}
