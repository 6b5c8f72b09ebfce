package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for civil dates.
const DateLayout = "2006-01-02"

// Weekday enumerates days of the week with Sunday as zero.
type Weekday int

// Weekday values, matching time.Weekday numbering.
const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Valid reports whether the weekday is within Sunday..Saturday.
func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return time.Weekday(w).String()
}

// WeekdayOf returns the weekday of t in its own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

// ParseWeekday accepts a number (0=Sunday) or an English day name or abbreviation.
func ParseWeekday(raw string) (Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(value); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return w, nil
	}
	for w := Sunday; w <= Saturday; w++ {
		name := strings.ToLower(w.String())
		if value == name || (len(value) >= 3 && strings.HasPrefix(name, value)) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// UnmarshalJSON accepts either a number or a day name.
func (w *Weekday) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed := Weekday(n)
		if !parsed.Valid() {
			return fmt.Errorf("weekday %d out of range 0-6", n)
		}
		*w = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("weekday must be a number or a name")
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// NormalizeWeekdays validates, de-duplicates and sorts a weekday set.
func NormalizeWeekdays(days []Weekday) ([]Weekday, error) {
	seen := make(map[Weekday]struct{}, len(days))
	out := make([]Weekday, 0, len(days))
	for _, d := range days {
		if !d.Valid() {
			return nil, fmt.Errorf("weekday %d out of range 0-6", int(d))
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// DateOf truncates t to its civil date, expressed as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a civil date for use as a map key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// Clock is a time of day measured in seconds since midnight. 24:00 is allowed as an end bound.
type Clock int

const secondsPerDay = 24 * 60 * 60

// NewClock builds a Clock from hours and minutes.
func NewClock(hour, minute int) Clock {
	return Clock(hour*3600 + minute*60)
}

// ClockOf extracts the time of day of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// ParseClock parses HH:MM or HH:MM:SS.
func ParseClock(raw string) (Clock, error) {
	value := strings.TrimSpace(raw)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", raw)
		}
		nums[i] = n
	}
	if nums[1] > 59 || nums[2] > 59 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	c := Clock(nums[0]*3600 + nums[1]*60 + nums[2])
	if c > secondsPerDay {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	return c, nil
}

// String renders HH:MM, adding seconds only when non-zero.
func (c Clock) String() string {
	h, m, s := int(c)/3600, (int(c)%3600)/60, int(c)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// On anchors the clock on the given civil date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(c) * time.Second)
}

// Value implements driver.Valuer using the SQL TIME literal format.
func (c Clock) Value() (driver.Value, error) {
	h, m, s := int(c)/3600, (int(c)%3600)/60, int(c)%60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

// Scan implements sql.Scanner for TIME columns.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		// TIME '24:00:00' arrives as midnight of the day after the zero date.
		if v.Sub(time.Date(0, 1, 1, 0, 0, 0, 0, v.Location())) == 24*time.Hour {
			*c = NewClock(24, 0)
			return nil
		}
		*c = ClockOf(v)
		return nil
	case []byte:
		return c.parseInto(string(v))
	case string:
		return c.parseInto(v)
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
}

func (c *Clock) parseInto(raw string) error {
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON renders the clock as "HH:MM".
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses "HH:MM" or "HH:MM:SS".
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string")
	}
	return c.parseInto(s)
}
