package services

import (
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("checkout session not found")

const defaultSessionTTL = 2 * time.Hour

// SessionStore keeps checkout sessions in memory. Update holds a per-session
// lock for the whole transition, so two overlapping submits on one session
// run one after the other; the second sees Payment and is rejected. While a
// transition runs, Get answers with the last settled session marked Loading.
// Sessions untouched for longer than the TTL expire.
type SessionStore struct {
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	// run serializes transitions; the fields below are guarded by the store mutex.
	run sync.Mutex

	s       Session
	loading bool
	touched time.Time
}

// NewSessionStore returns a store whose sessions expire after ttl without
// use. Non-positive ttl means two hours.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{ttl: ttl, now: time.Now, sessions: map[string]*sessionEntry{}}
}

func (st *SessionStore) Create(ownerID string) Session {
	s := NewSession(ownerID)
	st.mu.Lock()
	now := st.now()
	st.sweepLocked(now)
	st.sessions[s.ID] = &sessionEntry{s: s, touched: now}
	st.mu.Unlock()
	return s
}

// Len reports how many sessions are held.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) expiredLocked(e *sessionEntry, now time.Time) bool {
	return !e.loading && now.Sub(e.touched) > st.ttl
}

// sweepLocked drops expired sessions, at most once per tenth of the TTL.
func (st *SessionStore) sweepLocked(now time.Time) {
	if now.Sub(st.lastSweep) < st.ttl/10 {
		return
	}
	st.lastSweep = now
	for id, e := range st.sessions {
		if st.expiredLocked(e, now) {
			delete(st.sessions, id)
		}
	}
}

// entryLocked finds id for ownerID, dropping it when expired.
func (st *SessionStore) entryLocked(id, ownerID string) (*sessionEntry, error) {
	e, ok := st.sessions[id]
	if !ok || e.s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	if st.expiredLocked(e, st.now()) {
		delete(st.sessions, id)
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (st *SessionStore) Get(id, ownerID string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.entryLocked(id, ownerID)
	if err != nil {
		return Session{}, err
	}
	e.touched = st.now()
	s := e.s
	s.Loading = e.loading
	return s, nil
}

// Update runs fn against the stored session and saves whatever session fn
// returns, even alongside an error, since failed transitions still carry
// the message to show. Loading is cleared once fn returns.
func (st *SessionStore) Update(id, ownerID string, fn func(Session) (Session, error)) (Session, error) {
	st.mu.Lock()
	e, err := st.entryLocked(id, ownerID)
	st.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	e.run.Lock()
	defer e.run.Unlock()

	st.mu.Lock()
	if cur, ok := st.sessions[id]; !ok || cur != e {
		st.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	current := e.s
	e.loading = true
	st.mu.Unlock()

	next, ferr := fn(current)
	next.Loading = false

	st.mu.Lock()
	e.s = next
	e.loading = false
	e.touched = st.now()
	st.mu.Unlock()
	return next, ferr
}

func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
