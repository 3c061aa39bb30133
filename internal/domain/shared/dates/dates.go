package dates

import (
	"errors"
	"time"
)

var (
	ErrInvalidDay   = errors.New("dates: day must be formatted as YYYY-MM-DD")
	ErrInvalidRange = errors.New("dates: end day must not be before start day")
)

const keyLayout = "2006-01-02"

// Day is a timezone-less calendar day, normalized to midnight UTC.
type Day struct {
	t time.Time
}

// FromTime truncates the provided instant to its UTC calendar day.
func FromTime(t time.Time) Day {
	u := t.UTC()
	return Day{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Parse reads an ISO YYYY-MM-DD key.
func Parse(key string) (Day, error) {
	t, err := time.Parse(keyLayout, key)
	if err != nil {
		return Day{}, ErrInvalidDay
	}
	return Day{t: t}, nil
}

// Key renders the canonical ISO date key.
func (d Day) Key() string {
	return d.t.Format(keyLayout)
}

func (d Day) Time() time.Time {
	return d.t
}

func (d Day) IsZero() bool {
	return d.t.IsZero()
}

func (d Day) Before(other Day) bool {
	return d.t.Before(other.t)
}

func (d Day) After(other Day) bool {
	return d.t.After(other.t)
}

func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// AddDays returns the day shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// Range is an inclusive [Start, End] span of calendar days.
type Range struct {
	Start Day
	End   Day
}

// NewRange builds an inclusive range; a single-day rental has Start == End.
func NewRange(start, end Day) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// ParseRange reads two ISO date keys into an inclusive range.
func ParseRange(startKey, endKey string) (Range, error) {
	start, err := Parse(startKey)
	if err != nil {
		return Range{}, err
	}
	end, err := Parse(endKey)
	if err != nil {
		return Range{}, err
	}
	return NewRange(start, end)
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days is the inclusive day count; it doubles as the billable-night factor.
func (r Range) Days() int {
	return int(r.End.t.Sub(r.Start.t).Hours()/24) + 1
}

func (r Range) Overlaps(other Range) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

func (r Range) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Each walks every day of the range in ascending order.
func (r Range) Each(fn func(Day)) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		fn(d)
	}
}

// Keys lists every ISO day key of the range in ascending order.
func (r Range) Keys() []string {
	keys := make([]string, 0, r.Days())
	r.Each(func(d Day) {
		keys = append(keys, d.Key())
	})
	return keys
}

func (r Range) StartKey() string { return r.Start.Key() }
func (r Range) EndKey() string   { return r.End.Key() }
