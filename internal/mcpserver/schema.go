package mcpserver

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

func clampPage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
