package session

import (
	"strings"

	"wager-arena/internal/arena"
)

type Arena interface {
	Session(id string) (arena.SessionView, bool)
	SessionsOf(userID string) []arena.SessionView
}

type Service struct {
	arena Arena
}

func NewService(a Arena) *Service {
	return &Service{arena: a}
}

func (s *Service) Get(sessionID string) (*arena.SessionView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidRequest
	}
	v, ok := s.arena.Session(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &v, nil
}

// FindByUser lists the live sessions userID still takes part in.
func (s *Service) FindByUser(userID string) ([]arena.SessionView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	out := s.arena.SessionsOf(userID)
	if out == nil {
		out = []arena.SessionView{}
	}
	return out, nil
}
