// Package recurrence expands weekly class templates into concrete civil dates.
package recurrence

import (
	"errors"
	"time"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

// MaxRangeDays bounds the span a single expansion may cover.
const MaxRangeDays = 365

// ErrRangeTooLarge is returned when the requested range exceeds MaxRangeDays.
var ErrRangeTooLarge = errors.New("recurrence range exceeds 365 days")

// CheckRange rejects spans longer than MaxRangeDays without touching the weekday set.
func CheckRange(start, end time.Time) error {
	from, to := models.DateOf(start), models.DateOf(end)
	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		return ErrRangeTooLarge
	}
	return nil
}

// Iterator yields the dates of a weekly recurrence in ascending order. It keeps one cursor per
// distinct weekday, so memory does not grow with the range.
type Iterator struct {
	cursors []time.Time
	end     time.Time
}

// NewIterator prepares an iterator over [start, end] inclusive.
func NewIterator(weekdays []models.Weekday, start, end time.Time) (*Iterator, error) {
	from, to := models.DateOf(start), models.DateOf(end)
	if err := CheckRange(from, to); err != nil {
		return nil, err
	}
	it := &Iterator{end: to}
	if from.After(to) {
		return it, nil
	}
	days, err := models.NormalizeWeekdays(weekdays)
	if err != nil {
		return nil, err
	}
	for _, day := range days {
		offset := (int(day) - int(models.WeekdayOf(from)) + 7) % 7
		first := from.AddDate(0, 0, offset)
		if first.After(to) {
			continue
		}
		it.cursors = append(it.cursors, first)
	}
	return it, nil
}

// Next returns the next date and true, or false once the range is exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	idx := -1
	for i, c := range it.cursors {
		if idx == -1 || c.Before(it.cursors[idx]) {
			idx = i
		}
	}
	if idx == -1 {
		return time.Time{}, false
	}
	current := it.cursors[idx]
	next := current.AddDate(0, 0, 7)
	if next.After(it.end) {
		it.cursors = append(it.cursors[:idx], it.cursors[idx+1:]...)
	} else {
		it.cursors[idx] = next
	}
	return current, true
}

// Expand collects every date of the recurrence into a sorted slice.
func Expand(weekdays []models.Weekday, start, end time.Time) ([]time.Time, error) {
	it, err := NewIterator(weekdays, start, end)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for d, ok := it.Next(); ok; d, ok = it.Next() {
		dates = append(dates, d)
	}
	return dates, nil
}
