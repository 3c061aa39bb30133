package availability

import (
	"context"
	"sort"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/events"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

// Calendar is the per-listing index of unavailable days. Days are stored as
// a set of ISO keys: inserting a blocked day twice is a no-op, never an error.
type Calendar struct {
	ListingID listing.ListingID
	Version   int64
	days      map[string]struct{}
	events.EventRecorder
}

type Repository interface {
	Calendar(ctx context.Context, id listing.ListingID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id listing.ListingID) *Calendar {
	return &Calendar{ListingID: id, days: make(map[string]struct{})}
}

// Restore rebuilds a calendar from persisted day keys.
func Restore(id listing.ListingID, version int64, dayKeys []string) *Calendar {
	c := NewCalendar(id)
	c.Version = version
	for _, key := range dayKeys {
		c.days[key] = struct{}{}
	}
	return c
}

// IsRangeFree reports whether no blocked day intersects r and the range does
// not start in the past.
func (c *Calendar) IsRangeFree(r dates.Range, today dates.Day) bool {
	if r.Start.Before(today) {
		return false
	}
	return c.overlap(r) == nil
}

// Reserve atomically blocks every day of r with compare-and-set semantics:
// the freedom check runs again at commit time so racing writers cannot both
// succeed. Conflicts report the contested sub-range.
func (c *Calendar) Reserve(r dates.Range, today dates.Day, now time.Time) error {
	if err := r.Validate(); err != nil {
		return faults.Validationf("availability: %v", err)
	}
	if r.Start.Before(today) {
		return faults.Validationf("availability: range starts in the past")
	}
	if conflict := c.overlap(r); conflict != nil {
		c.Record(OverbookingPrevented{ListingID: string(c.ListingID), Start: conflict.StartKey(), End: conflict.EndKey(), At: now.UTC()})
		return faults.Conflictf(conflict.StartKey(), conflict.EndKey(), "availability: range overlaps existing unavailable days")
	}
	r.Each(func(d dates.Day) {
		c.days[d.Key()] = struct{}{}
	})
	c.Record(DaysBlocked{ListingID: string(c.ListingID), Start: r.StartKey(), End: r.EndKey(), At: now.UTC()})
	return nil
}

// Release removes every day of r from the blocked set. Removing already-free
// days is a no-op, which makes the call safe to repeat.
func (c *Calendar) Release(r dates.Range, now time.Time) error {
	if err := r.Validate(); err != nil {
		return faults.Validationf("availability: %v", err)
	}
	removed := false
	r.Each(func(d dates.Day) {
		if _, ok := c.days[d.Key()]; ok {
			delete(c.days, d.Key())
			removed = true
		}
	})
	if removed {
		c.Record(DaysReleased{ListingID: string(c.ListingID), Start: r.StartKey(), End: r.EndKey(), At: now.UTC()})
	}
	return nil
}

// Block adds arbitrary days (owner-managed blackouts); duplicates are deduplicated.
func (c *Calendar) Block(days []dates.Day, now time.Time) {
	added := false
	for _, d := range days {
		if _, ok := c.days[d.Key()]; !ok {
			c.days[d.Key()] = struct{}{}
			added = true
		}
	}
	if added {
		c.Record(DaysBlocked{ListingID: string(c.ListingID), Start: minKey(days), End: maxKey(days), At: now.UTC()})
	}
}

// Unblock removes arbitrary days; absent days are ignored.
func (c *Calendar) Unblock(days []dates.Day, now time.Time) {
	removed := false
	for _, d := range days {
		if _, ok := c.days[d.Key()]; ok {
			delete(c.days, d.Key())
			removed = true
		}
	}
	if removed {
		c.Record(DaysReleased{ListingID: string(c.ListingID), Start: minKey(days), End: maxKey(days), At: now.UTC()})
	}
}

// Unavailable lists the blocked day keys in ascending order.
func (c *Calendar) Unavailable() []string {
	keys := make([]string, 0, len(c.days))
	for key := range c.days {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ConflictingRange returns the contested sub-range of r, or nil when r is free.
func (c *Calendar) ConflictingRange(r dates.Range) *dates.Range {
	return c.overlap(r)
}

// overlap returns the contested sub-range of r, or nil when r is free.
func (c *Calendar) overlap(r dates.Range) *dates.Range {
	var first, last dates.Day
	r.Each(func(d dates.Day) {
		if _, ok := c.days[d.Key()]; !ok {
			return
		}
		if first.IsZero() {
			first = d
		}
		last = d
	})
	if first.IsZero() {
		return nil
	}
	return &dates.Range{Start: first, End: last}
}

func minKey(days []dates.Day) string {
	min := ""
	for _, d := range days {
		if min == "" || d.Key() < min {
			min = d.Key()
		}
	}
	return min
}

func maxKey(days []dates.Day) string {
	max := ""
	for _, d := range days {
		if d.Key() > max {
			max = d.Key()
		}
	}
	return max
}
