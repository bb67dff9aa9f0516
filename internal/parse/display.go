package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(?::(\d{2}))?(?:\s*([AP]M))?$`)
)

// Date holds the calendar fields of a DD/MM/YYYY display string.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Clock holds the wall-clock fields of an HH:MM[:SS] display string.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// DisplayDate parses a DD/MM/YYYY string. The day must exist in the given month.
func DisplayDate(raw string) (Date, error) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Date{}, fmt.Errorf("unable to parse date: %q", raw)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if month < 1 || month > 12 || day < 1 {
		return Date{}, fmt.Errorf("date out of range: %q", raw)
	}
	// time.Date normalises overflow (31/02 -> 03/03); reject anything it had to move.
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != time.Month(month) {
		return Date{}, fmt.Errorf("date out of range: %q", raw)
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// DisplayClock parses an HH:MM or HH:MM:SS string, with an optional AM/PM suffix.
func DisplayClock(raw string) (Clock, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Clock{}, fmt.Errorf("unable to parse time: %q", raw)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	if meridiem := strings.ToUpper(m[4]); meridiem != "" {
		if hour < 1 || hour > 12 {
			return Clock{}, fmt.Errorf("hour out of range for 12-hour clock: %q", raw)
		}
		hour %= 12
		if meridiem == "PM" {
			hour += 12
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return Clock{}, fmt.Errorf("time out of range: %q", raw)
	}
	return Clock{Hour: hour, Minute: minute, Second: second}, nil
}

// DisplayInstant combines a display date and time into an instant, reading the
// fields as UTC wall-clock values so the host timezone never shifts the result.
func DisplayInstant(date, clock string) (time.Time, error) {
	d, err := DisplayDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := DisplayClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, c.Second, 0, time.UTC), nil
}
