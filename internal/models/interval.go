package models

import (
	"time"

	"gigbook-workers/internal/common/errors"
)

// TimeInterval is a half-open span [Start, End). Build it with NewTimeInterval.
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeInterval returns INVALID_INTERVAL unless start is strictly before end.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, errors.NewInvalidIntervalError(start, end)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Validate re-checks the construction invariant for intervals decoded from JSON or rows.
func (i TimeInterval) Validate() error {
	if !i.Start.Before(i.End) {
		return errors.NewInvalidIntervalError(i.Start, i.End)
	}
	return nil
}

// Duration is End minus Start.
func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Expand moves Start earlier by before and End later by after.
func (i TimeInterval) Expand(before, after time.Duration) TimeInterval {
	return TimeInterval{Start: i.Start.Add(-before), End: i.End.Add(after)}
}

// Overlaps reports whether the two intervals share any instant. Touching endpoints do not overlap.
func Overlaps(a, b TimeInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Overlaps is the method form of Overlaps.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return Overlaps(i, other)
}

// Minutes converts a minute count to a time.Duration.
func Minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}
