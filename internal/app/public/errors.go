package public

import "errors"

var ErrResultsUnavailable = errors.New("results_unavailable")
