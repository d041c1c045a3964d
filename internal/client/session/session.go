// Package session tracks who is signed in on this device and whether the
// mirror is reachable, and manages offline accounts.
package session

import (
	"sync"
)

// Session holds the signed-in user and the connectivity state. Observers
// registered with Subscribe run synchronously, in registration order, each
// time the online state changes.
type Session struct {
	mu     sync.Mutex
	userID string
	online bool

	nextID    int
	observers map[int]func(online bool)
	order     []int
}

func New(online bool) *Session {
	return &Session{online: online, observers: make(map[int]func(bool))}
}

func (s *Session) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) setUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
}

func (s *Session) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline updates the state and notifies observers if it changed. It
// reports whether a change happened.
func (s *Session) SetOnline(online bool) bool {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return false
	}
	s.online = online
	fns := make([]func(bool), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
	return true
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn func(online bool)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}
