// Package orders holds the pure domain rules for what can be ordered.
// Validation never touches the gateway or the store, so a rejected order
// leaves no trace anywhere.
package orders

import "errors"

const (
	MinHours = 3
	MaxHours = 504
)

var (
	ErrInvalidNodeCount = errors.New("invalid node count: valid counts are 8, 16, 32 and 64")
	ErrHoursTooLow      = errors.New("the minimum hours you can set is 3")
	ErrHoursTooHigh     = errors.New("the maximum hours you can set is 504")
)

var allowedNodeCounts = map[int]struct{}{
	8:  {},
	16: {},
	32: {},
	64: {},
}

func Validate(nodeCount, hours int) error {
	if _, ok := allowedNodeCounts[nodeCount]; !ok {
		return ErrInvalidNodeCount
	}
	if hours < MinHours {
		return ErrHoursTooLow
	}
	if hours > MaxHours {
		return ErrHoursTooHigh
	}
	return nil
}
