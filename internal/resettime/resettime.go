// Package resettime converts the reset expressions rendered by provider tools
// into absolute instants.
//
// Recognized forms, tried in order:
//
//	Jan 10, 12pm      month, day and clock: the next such date at/after now
//	4pm, 11:30am      clock: the next occurrence at/after now (rolls one day)
//	1d 2h 30m         relative: now plus the sum of the present components
//	1767225600000     epoch milliseconds (13+ digits), passed through
//	1767225600        epoch seconds (10 to 12 digits)
//
// Anything else is not determined and reported with ok == false.
package resettime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	dateRe     = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})\b`)
	relativeRe = regexp.MustCompile(`(?i)^\s*(?:(\d+)\s*d)?\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?\s*$`)
	epochRe    = regexp.MustCompile(`^\s*(\d{10,})\s*$`)
)

// epochMillisDigits separates epoch seconds from milliseconds: a 13 digit
// count of seconds is tens of millennia away.
const epochMillisDigits = 13

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ToAbsolute resolves expr relative to now. Clock and date forms are
// interpreted in now's location.
func ToAbsolute(expr string, now time.Time) (time.Time, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, false
	}
	if m := epochRe.FindStringSubmatch(expr); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		if len(m[1]) < epochMillisDigits {
			return time.Unix(n, 0).UTC(), true
		}
		return FromEpochMillis(n), true
	}
	if clock := clockRe.FindStringSubmatch(expr); clock != nil {
		hour, minute, ok := parseClock(clock)
		if !ok {
			return time.Time{}, false
		}
		if date := dateRe.FindStringSubmatch(expr); date != nil {
			return nextDate(now, months[strings.ToLower(date[1])], date[2], hour, minute)
		}
		return nextClock(now, hour, minute), true
	}
	if m := relativeRe.FindStringSubmatch(expr); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
		d := component(m[1], 24*time.Hour) + component(m[2], time.Hour) + component(m[3], time.Minute)
		return now.Add(d), true
	}
	return time.Time{}, false
}

// InZone is ToAbsolute with clock and date forms resolved in the named IANA
// zone. An empty or unknown zone falls back to now's location.
func InZone(expr, zone string, now time.Time) (time.Time, bool) {
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			now = now.In(loc)
		}
	}
	return ToAbsolute(expr, now)
}

// FromEpochMillis converts epoch milliseconds to a UTC time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func parseClock(m []string) (hour, minute int, ok bool) {
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	pm := strings.EqualFold(m[3], "pm")
	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	return hour, minute, true
}

func nextClock(now time.Time, hour, minute int) time.Time {
	y, mo, d := now.Date()
	at := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	if at.Before(now) {
		at = time.Date(y, mo, d+1, hour, minute, 0, 0, now.Location())
	}
	return at
}

func nextDate(now time.Time, month time.Month, day string, hour, minute int) (time.Time, bool) {
	dd, err := strconv.Atoi(day)
	if err != nil || dd < 1 || dd > 31 {
		return time.Time{}, false
	}
	at := time.Date(now.Year(), month, dd, hour, minute, 0, 0, now.Location())
	if at.Day() != dd {
		// Feb 30 and friends.
		return time.Time{}, false
	}
	if at.Before(now) {
		at = time.Date(now.Year()+1, month, dd, hour, minute, 0, 0, now.Location())
	}
	return at, true
}

func component(v string, unit time.Duration) time.Duration {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(n) * unit
}
