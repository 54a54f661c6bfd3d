package siconfi

import "errors"

// ErrNoData means every query attempt completed without returning items.
var ErrNoData = errors.New("no data available for these filters")
