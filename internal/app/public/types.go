package public

import "wager-arena/internal/arena"

type GamesResponse struct {
	Items []arena.GameListing `json:"items"`
}

type ResultsResponse struct {
	Items []arena.Result `json:"items"`
	Limit int64          `json:"limit"`
}
