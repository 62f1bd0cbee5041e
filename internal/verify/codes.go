// internal/verify/codes.go
//
// In-memory verification codes keyed by phone number.
//
// Characteristics:
//   - 6-digit numeric codes from crypto/rand.
//   - Single use: a successful Consume erases the entry.
//   - Entries expire after the configured TTL (10 minutes in production).
//   - Concurrency-safe via mutex; state is lost on restart, which only
//     forces users mid-registration to request a new code.

package verify

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

type entry struct {
	code    string
	expires time.Time
}

// Codes stores pending verification codes.
type Codes struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewCodes constructs a code store with the given TTL.
func NewCodes(ttl time.Duration) *Codes {
	return &Codes{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Issue creates and stores a fresh 6-digit code for phone, replacing any
// previous one.
func (c *Codes) Issue(phone string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	c.entries[phone] = entry{code: code, expires: c.now().Add(c.ttl)}
	return code, nil
}

// Consume checks code against the stored entry for phone. On success the
// entry is erased so the code cannot be replayed.
func (c *Codes) Consume(phone, code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[phone]
	if !ok || c.now().After(e.expires) || e.code != code {
		return false
	}
	delete(c.entries, phone)
	return true
}

// purgeLocked drops expired entries. Caller holds c.mu.
func (c *Codes) purgeLocked() {
	now := c.now()
	for phone, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, phone)
		}
	}
}
