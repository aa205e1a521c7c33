package scoreboard

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrAddressNotFound = errors.New("address not found")

// CodeLength is the width of a human-typeable match code.
const CodeLength = 6

// codeAlphabet has 32 characters, so modulo on a random byte is unbiased.
// 0/1/I/O are left out because people type codes from a TV screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type addressEntry struct {
	matchID   string // empty while an unbound TV session waits for a link
	createdAt time.Time
}

// AddressRegistry maps addresses to match ids. An address is either a
// short code issued together with its match, or a long TV session id
// issued before any match exists. A released address is gone for good;
// callers have to issue a fresh one.
type AddressRegistry struct {
	mu      sync.Mutex
	entries map[string]*addressEntry

	// newCode is swappable in tests to force collisions.
	newCode func() string
}

func NewAddressRegistry() *AddressRegistry {
	return &AddressRegistry{
		entries: make(map[string]*addressEntry),
		newCode: randomCode,
	}
}

func randomCode() string {
	b := make([]byte, CodeLength)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

// canon case-normalizes short codes. Session ids pass through untouched.
func canon(address string) string {
	if len(address) == CodeLength {
		return strings.ToUpper(address)
	}
	return address
}

// IssueCode draws a short code unique among currently live codes and
// registers it as unbound. Collisions are vanishingly rare at 32^6 live
// codes but a clash just draws again.
func (r *AddressRegistry) IssueCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		code := r.newCode()
		if _, taken := r.entries[code]; taken {
			continue
		}
		r.entries[code] = &addressEntry{createdAt: time.Now()}
		return code
	}
}

// IssueSession registers a long-entropy session id for a TV display that
// has no match yet.
func (r *AddressRegistry) IssueSession() string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &addressEntry{createdAt: time.Now()}
	return id
}

// Bind attaches a match to an already issued address.
func (r *AddressRegistry) Bind(address, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[canon(address)]
	if !ok {
		return ErrAddressNotFound
	}
	e.matchID = matchID
	return nil
}

// Resolve returns the bound match id. An empty id with a nil error means
// the address exists but no match is linked yet.
func (r *AddressRegistry) Resolve(address string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[canon(address)]
	if !ok {
		return "", ErrAddressNotFound
	}
	return e.matchID, nil
}

// Release retires the address permanently. The bound match id, if any, is
// returned so the caller can delete the match in the same operation.
func (r *AddressRegistry) Release(address string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := canon(address)
	e, ok := r.entries[key]
	if !ok {
		return "", ErrAddressNotFound
	}
	delete(r.entries, key)
	return e.matchID, nil
}

// ExpiredBefore lists addresses created before the cutoff.
func (r *AddressRegistry) ExpiredBefore(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var addrs []string
	for addr, e := range r.entries {
		if e.createdAt.Before(cutoff) {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

func (r *AddressRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
