package pricing

import "errors"

var ErrInvalidNodeCount = errors.New("invalid node count")

// rateTable maps cluster size to msat per node-hour. Larger clusters carry a
// higher per-unit rate. Fixed and ordered; no interpolation for other sizes.
var rateTable = []struct {
	NodeCount int
	RateMsat  int64
}{
	{8, 200000},
	{16, 220000},
	{32, 240000},
	{64, 260000},
}

type Service struct{}

// RateFor returns the msat per node-hour rate for nodeCount, or
// ErrInvalidNodeCount if nodeCount is not a sold cluster size.
func (s Service) RateFor(nodeCount int) (int64, error) {
	for _, row := range rateTable {
		if row.NodeCount == nodeCount {
			return row.RateMsat, nil
		}
	}
	return 0, ErrInvalidNodeCount
}

// NodeCounts returns the sold cluster sizes in ascending order.
func (s Service) NodeCounts() []int {
	out := make([]int, 0, len(rateTable))
	for _, row := range rateTable {
		out = append(out, row.NodeCount)
	}
	return out
}
