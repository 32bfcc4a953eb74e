// Package public serves the unauthenticated read views of the arena.
package public

import (
	"context"

	"wager-arena/internal/arena"
)

type Arena interface {
	OpenGames() []arena.GameListing
	Stats() arena.Stats
}

// Results is the recent-results source; the Redis mirror in production.
type Results interface {
	RecentResults(ctx context.Context, limit int64) ([]arena.Result, error)
}

type Service struct {
	arena   Arena
	results Results
}

const defaultResultsLimit = 20

// NewService accepts a nil results source; Results then reports
// ErrResultsUnavailable.
func NewService(a Arena, results Results) *Service {
	return &Service{arena: a, results: results}
}

func (s *Service) Games() *GamesResponse {
	return &GamesResponse{Items: s.arena.OpenGames()}
}

func (s *Service) Stats() arena.Stats {
	return s.arena.Stats()
}

func (s *Service) Results(ctx context.Context, limit int64) (*ResultsResponse, error) {
	if s.results == nil {
		return nil, ErrResultsUnavailable
	}
	if limit <= 0 {
		limit = defaultResultsLimit
	}
	items, err := s.results.RecentResults(ctx, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []arena.Result{}
	}
	return &ResultsResponse{Items: items, Limit: limit}, nil
}
