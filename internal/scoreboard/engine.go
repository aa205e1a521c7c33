package scoreboard

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNoMatchLinked means the address exists but no match is attached yet;
// producers cannot update a TV that is still showing its QR code.
var ErrNoMatchLinked = errors.New("no match linked to this address")

// ErrAlreadyLinked means the session already carries a match. Unlink
// first; relinking in place is not a thing, the old session id dies with
// its match.
var ErrAlreadyLinked = errors.New("a match is already linked to this session")

// Engine orchestrates the match table, the address table and the fan-out.
// Its mutex makes cross-table operations (create+bind, release+delete)
// atomic to observers and keeps publish order equal to the order updates
// were accepted. Nothing inside the critical sections blocks: publishing
// only enqueues.
type Engine struct {
	log *slog.Logger

	mu       sync.Mutex
	store    *MatchStore
	registry *AddressRegistry
	hub      *Hub
}

func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		log:      log,
		store:    NewMatchStore(),
		registry: NewAddressRegistry(),
		hub:      NewHub(),
	}
}

// CreateMatch creates a match and its owning short code in one step.
func (e *Engine) CreateMatch(settings MatchSettings) (code, matchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	code = e.registry.IssueCode()
	m := e.store.Create(settings)
	// the code was just issued, Bind cannot miss
	_ = e.registry.Bind(code, m.ID)

	e.log.Info("match created", "code", code, "match_id", m.ID)
	return code, m.ID
}

// IssueSession hands out a fresh unbound TV session id, the thing the QR
// code on the idle display encodes.
func (e *Engine) IssueSession() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.registry.IssueSession()
	e.log.Info("tv session issued", "session_id", id)
	return id
}

// LinkSession attaches a new match to a previously issued unbound
// session and tells the waiting displays about it.
func (e *Engine) LinkSession(sessionID string, settings MatchSettings) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bound, err := e.registry.Resolve(sessionID)
	if err != nil {
		return "", err
	}
	if bound != "" {
		return "", ErrAlreadyLinked
	}

	m := e.store.Create(settings)
	_ = e.registry.Bind(sessionID, m.ID)

	e.hub.Publish(sessionID, mustEnvelope("match_linked", m.Payload()))
	e.log.Info("match linked", "session_id", sessionID, "match_id", m.ID)
	return m.ID, nil
}

// UnlinkSession retires the session and destroys its match. The old id
// is never valid again; the returned fresh session id replaces it.
func (e *Engine) UnlinkSession(sessionID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	matchID, err := e.registry.Release(sessionID)
	if err != nil {
		return "", err
	}
	e.hub.Retire(sessionID)
	if matchID != "" {
		if derr := e.store.Delete(matchID); derr != nil {
			e.log.Warn("unlink: match already gone", "match_id", matchID)
		}
	}

	fresh := e.registry.IssueSession()
	e.log.Info("tv session unlinked", "old_session_id", sessionID, "new_session_id", fresh)
	return fresh, nil
}

// SubmitUpdate merges a partial update into the addressed match and
// broadcasts the display payload to every subscriber of that address.
// Fire-and-forget: a display that is not connected right now simply
// misses it and catches up via Snapshot.
func (e *Engine) SubmitUpdate(address string, upd MatchUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	matchID, err := e.registry.Resolve(address)
	if err != nil {
		return err
	}
	if matchID == "" {
		return ErrNoMatchLinked
	}

	m, err := e.store.ApplyUpdate(matchID, upd)
	if err != nil {
		return err
	}

	n := e.hub.Publish(address, mustEnvelope("match_update", m.Payload()))
	e.log.Debug("match update published", "address", address, "subscribers", n)
	return nil
}

// Snapshot is the pull path: the same display-ready payload a push would
// carry, for displays that poll or that just joined.
func (e *Engine) Snapshot(address string) (MatchPayload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	matchID, err := e.registry.Resolve(address)
	if err != nil {
		return MatchPayload{}, err
	}
	if matchID == "" {
		return MatchPayload{}, ErrNoMatchLinked
	}
	m, err := e.store.Get(matchID)
	if err != nil {
		return MatchPayload{}, err
	}
	return m.Payload(), nil
}

// Subscribe registers a display connection against the address. The
// address may still be unbound; the display waits for a link. Unknown or
// retired addresses are refused so the display can show its invalid-code
// screen instead of waiting forever.
func (e *Engine) Subscribe(address string, sub *Subscriber) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.registry.Resolve(address); err != nil {
		return err
	}
	e.hub.Subscribe(address, sub)
	return nil
}

// Unsubscribe drops the connection from the fan-out. Safe on connections
// that were never subscribed or already removed.
func (e *Engine) Unsubscribe(sub *Subscriber) {
	e.hub.Unsubscribe(sub)
}

// AddressExists reports whether the address is currently live, bound or
// not. Retired addresses are gone.
func (e *Engine) AddressExists(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.registry.Resolve(address)
	return err == nil
}

// Sweep removes every address created before the cutoff together with its
// match, best effort per entity. Called by the janitor; exposed so tests
// can trigger a sweep without waiting on a timer.
func (e *Engine) Sweep(cutoff time.Time) (matches, addresses int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, addr := range e.registry.ExpiredBefore(cutoff) {
		matchID, err := e.registry.Release(addr)
		if err != nil {
			e.log.Warn("sweep: release failed", "address", addr, "err", err)
			continue
		}
		addresses++
		e.hub.Retire(addr)

		if matchID == "" {
			continue
		}
		if err := e.store.Delete(matchID); err != nil {
			e.log.Warn("sweep: match already gone", "address", addr, "match_id", matchID)
			continue
		}
		matches++
	}

	// Orphaned matches should not exist; sweep them anyway rather than
	// leak them.
	for _, id := range e.store.ExpiredBefore(cutoff) {
		if err := e.store.Delete(id); err != nil {
			continue
		}
		e.log.Warn("sweep: removed match without owning address", "match_id", id)
		matches++
	}
	return matches, addresses
}
