package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Range is a half-open [Start, End) interval expressed in minutes since
// midnight. Back-to-back ranges (a.End == b.Start) do not overlap.
type Range struct {
	Start int
	End   int
}

var ErrInvalidRange = errors.New("start time must be before end time")

func (r Range) Valid() bool {
	return r.Start >= 0 && r.End <= 24*60 && r.Start < r.End
}

func (r Range) Duration() int {
	return r.End - r.Start
}

func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether o fits entirely inside r.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", FormatClock(r.Start), FormatClock(r.End))
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight back to "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseDate validates a calendar date in "YYYY-MM-DD" form and returns it
// normalized.
func ParseDate(s string) (string, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t.Format("2006-01-02"), nil
}

// At anchors a date plus minutes-since-midnight to a wall-clock instant in
// the given location.
func At(date string, min int, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(time.Duration(min) * time.Minute), nil
}
