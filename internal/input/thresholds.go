package input

import (
	"errors"
	"fmt"
	"math"
)

// ThresholdTable holds the descending voltage boundaries of one button
// ladder. A reading v falls in band i iff t[i+1] < v <= t[i]. The last entry
// is a sentinel below every real reading, so a table decodes len(t)-1
// buttons.
type ThresholdTable []int

// NoButtonLevel is the ladder level above which no button is held.
const NoButtonLevel = 3800

// BelowAll is the closing sentinel of every table.
const BelowAll = math.MinInt32

// DefaultChannel1 returns the ladder table for Back, Confirm, Left, Right.
func DefaultChannel1() ThresholdTable {
	return ThresholdTable{NoButtonLevel, 3100, 2090, 750, BelowAll}
}

// DefaultChannel2 returns the ladder table for Up, Down.
func DefaultChannel2() ThresholdTable {
	return ThresholdTable{NoButtonLevel, 1120, BelowAll}
}

// Buttons returns the number of bands in t.
func (t ThresholdTable) Buttons() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Decode returns the band index holding v. Bands are disjoint so the first
// match is the only match. Readings above t[0] decode to no button.
func (t ThresholdTable) Decode(v int) (int, bool) {
	for i := 0; i < t.Buttons(); i++ {
		if t[i+1] < v && v <= t[i] {
			return i, true
		}
	}
	return -1, false
}

// Validate checks that t has at least one band and strictly decreases.
func (t ThresholdTable) Validate() error {
	if len(t) < 2 {
		return errors.New("threshold table needs at least two boundaries")
	}
	for i := 1; i < len(t); i++ {
		if t[i] >= t[i-1] {
			return fmt.Errorf("threshold table not strictly decreasing at index %d (%d >= %d)", i, t[i], t[i-1])
		}
	}
	return nil
}
