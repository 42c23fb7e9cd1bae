package models

import (
	"fmt"
	"sort"
	"time"
)

// TimeIndex identifies a block within a stage.
type TimeIndex struct {
	Stage int `json:"stage"`
	Block int `json:"block"`
}

// Less orders time indexes by stage, then block.
func (t TimeIndex) Less(o TimeIndex) bool {
	if t.Stage != o.Stage {
		return t.Stage < o.Stage
	}
	return t.Block < o.Block
}

func (t TimeIndex) String() string {
	return fmt.Sprintf("(%d,%d)", t.Stage, t.Block)
}

// HourRecord assigns one calendar hour to its (stage, block).
type HourRecord struct {
	Stage         int       `json:"stage" db:"stage" validate:"gte=0"`
	Block         int       `json:"block" db:"block" validate:"gte=0"`
	Time          time.Time `json:"time" db:"time" validate:"required"`
	DurationHours float64   `json:"duration_h" db:"duration_h" validate:"gte=0"`
}

// CalendarKeys is the ordered set of stage and block ids.
type CalendarKeys struct {
	Stages []int `json:"stages"`
	Blocks []int `json:"blocks"`
}

// Calendar is the hour -> (stage, block) assignment table.
type Calendar struct {
	hours []HourRecord
	index map[int64]TimeIndex
	first time.Time
	last  time.Time
}

// FloorHour truncates a timestamp to hour granularity.
func FloorHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

func hourKey(t time.Time) int64 {
	return FloorHour(t).Unix()
}

// NewCalendar builds a calendar from hour records. Timestamps are floored to
// the hour; a zero duration defaults to one hour. When two records share a
// timestamp the later one wins the index.
func NewCalendar(hours []HourRecord) (*Calendar, error) {
	if len(hours) == 0 {
		return nil, &ValidationError{
			Field:   "calendar",
			Value:   "0 hours",
			Message: "calendar has no hour records",
		}
	}

	c := &Calendar{
		hours: make([]HourRecord, len(hours)),
		index: make(map[int64]TimeIndex, len(hours)),
	}

	for i, h := range hours {
		if h.Time.IsZero() {
			return nil, &ValidationError{
				Field:   "time",
				Value:   fmt.Sprintf("row %d", i),
				Message: "calendar hour has an empty timestamp",
			}
		}
		h.Time = FloorHour(h.Time)
		if h.DurationHours == 0 {
			h.DurationHours = 1.0
		}
		c.hours[i] = h
		c.index[h.Time.Unix()] = TimeIndex{Stage: h.Stage, Block: h.Block}

		if c.first.IsZero() || h.Time.Before(c.first) {
			c.first = h.Time
		}
		if c.last.IsZero() || h.Time.After(c.last) {
			c.last = h.Time
		}
	}

	return c, nil
}

// Hours returns a copy of the hour table.
func (c *Calendar) Hours() []HourRecord {
	out := make([]HourRecord, len(c.hours))
	copy(out, c.hours)
	return out
}

// Len returns the number of hour records.
func (c *Calendar) Len() int {
	return len(c.hours)
}

// Window returns the first and last covered hour.
func (c *Calendar) Window() (time.Time, time.Time) {
	return c.first, c.last
}

// InWindow reports whether t, floored to the hour, lies inside the window.
func (c *Calendar) InWindow(t time.Time) bool {
	ft := FloorHour(t)
	return !ft.Before(c.first) && !ft.After(c.last)
}

// Lookup returns the (stage, block) of an exact hour.
func (c *Calendar) Lookup(t time.Time) (TimeIndex, bool) {
	ti, ok := c.index[hourKey(t)]
	return ti, ok
}

// HourIndex returns a copy of the hour -> (stage, block) table in UTC.
func (c *Calendar) HourIndex() map[time.Time]TimeIndex {
	out := make(map[time.Time]TimeIndex, len(c.index))
	for k, ti := range c.index {
		out[time.Unix(k, 0).UTC()] = ti
	}
	return out
}

// Blocks returns the distinct (stage, block) pairs in ascending order.
func (c *Calendar) Blocks() []TimeIndex {
	seen := make(map[TimeIndex]struct{})
	out := make([]TimeIndex, 0)
	for _, h := range c.hours {
		ti := TimeIndex{Stage: h.Stage, Block: h.Block}
		if _, ok := seen[ti]; ok {
			continue
		}
		seen[ti] = struct{}{}
		out = append(out, ti)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Keys returns the ordered unique stage and block ids.
func (c *Calendar) Keys() CalendarKeys {
	stages := make(map[int]struct{})
	blocks := make(map[int]struct{})
	for _, h := range c.hours {
		stages[h.Stage] = struct{}{}
		blocks[h.Block] = struct{}{}
	}
	return CalendarKeys{Stages: sortedInts(stages), Blocks: sortedInts(blocks)}
}

// BlockDurations sums the hour durations of every (stage, block).
func (c *Calendar) BlockDurations() map[TimeIndex]float64 {
	out := make(map[TimeIndex]float64)
	for _, h := range c.hours {
		out[TimeIndex{Stage: h.Stage, Block: h.Block}] += h.DurationHours
	}
	return out
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
