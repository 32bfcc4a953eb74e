package arena

import (
	"sort"
	"sync"
)

// registry is the process-wide session map with its reverse indexes. Its
// lock is a leaf: callers may hold a session lock while calling in, never
// the other way around.
type registry struct {
	mu               sync.Mutex
	sessions         map[string]*Session
	byPlayer         map[string]map[string]struct{}
	waitingByCreator map[string]string
}

func newRegistry() *registry {
	return &registry{
		sessions:         map[string]*Session{},
		byPlayer:         map[string]map[string]struct{}{},
		waitingByCreator: map[string]string{},
	}
}

// insertWaiting adds a new waiting session. It fails if the creator already
// owns a waiting session or the id is still held by a live session.
func (r *registry) insertWaiting(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.waitingByCreator[s.CreatorID]; ok {
		return ErrAlreadyWaiting
	}
	if _, ok := r.sessions[s.ID]; ok {
		return ErrSessionConflict
	}
	r.sessions[s.ID] = s
	r.waitingByCreator[s.CreatorID] = s.ID
	r.addPlayerLocked(s.CreatorID, s.ID)
	return nil
}

func (r *registry) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

func (r *registry) get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

func (r *registry) hasWaiting(creatorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.waitingByCreator[creatorID]
	return ok
}

// started records that a waiting session has been matched.
func (r *registry) started(s *Session, joinerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waitingByCreator[s.CreatorID] == s.ID {
		delete(r.waitingByCreator, s.CreatorID)
	}
	r.addPlayerLocked(joinerID, s.ID)
}

func (r *registry) removePlayer(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removePlayerLocked(userID, sessionID)
}

func (r *registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.ID] != s {
		return
	}
	delete(r.sessions, s.ID)
	if r.waitingByCreator[s.CreatorID] == s.ID {
		delete(r.waitingByCreator, s.CreatorID)
	}
	for _, p := range s.Players {
		r.removePlayerLocked(p.ID, s.ID)
	}
}

// sessionsOf returns the ids of sessions userID still takes part in.
func (r *registry) sessionsOf(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byPlayer[userID]))
	for id := range r.byPlayer[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// waiting returns the currently waiting sessions, oldest id first.
func (r *registry) waiting() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.waitingByCreator))
	for _, id := range r.waitingByCreator {
		if s := r.sessions[id]; s != nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *registry) all() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) addPlayerLocked(userID, sessionID string) {
	set := r.byPlayer[userID]
	if set == nil {
		set = map[string]struct{}{}
		r.byPlayer[userID] = set
	}
	set[sessionID] = struct{}{}
}

func (r *registry) removePlayerLocked(userID, sessionID string) {
	set := r.byPlayer[userID]
	if set == nil {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.byPlayer, userID)
	}
}
