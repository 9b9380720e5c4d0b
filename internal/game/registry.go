package game

import "sync"

// registry indexes active sessions by game ID, by the lobby code they were started
// from, and by participant.
type registry struct {
	mu        sync.RWMutex
	byID      map[string]*Session
	byCode    map[string]string
	byAccount map[string]string
}

func newRegistry() *registry {
	return &registry{
		byID:      make(map[string]*Session),
		byCode:    make(map[string]string),
		byAccount: make(map[string]string),
	}
}

func (r *registry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[s.id] = s
	r.byCode[s.code] = s.id
	for _, id := range s.participantIDs() {
		r.byAccount[id] = s.id
	}
	r.byAccount[s.host.ID] = s.id
}

// get resolves ref as a game ID or, failing that, as a lobby code.
func (r *registry) get(ref string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byID[ref]; ok {
		return s, true
	}

	s, ok := r.byID[r.byCode[ref]]
	return s, ok
}

func (r *registry) forAccount(accountID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[r.byAccount[accountID]]
	return s, ok
}

// remove evicts s. It reports false when s was already gone.
func (r *registry) remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.id]; !ok {
		return false
	}

	delete(r.byID, s.id)
	if r.byCode[s.code] == s.id {
		delete(r.byCode, s.code)
	}
	for _, id := range append(s.participantIDs(), s.host.ID) {
		if r.byAccount[id] == s.id {
			delete(r.byAccount, id)
		}
	}

	return true
}

func (r *registry) all() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
