// Package timeparam turns human time expressions into the Unix timestamps
// the Graph API takes for its since/until time-based pagination params.
package timeparam

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// "2h ago", "30m ago", "1d ago", "2w ago", "1mo ago"
var relativeAgoRegex = regexp.MustCompile(`^(\d+)(mo|w|d|h|m)\s*ago$`)

// "30m", "2h", "1d"
var relativeFutureRegex = regexp.MustCompile(`^(\d+)(mo|w|d|h|m)$`)

var unixRegex = regexp.MustCompile(`^\d{9,}$`)

// Parse parses human-friendly time expressions: "2h ago", "yesterday",
// "monday", "next tue", "30m", "2006-01-02", RFC3339 and raw Unix seconds.
func Parse(s string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	if unixRegex.MatchString(raw) {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid unix timestamp %q", raw)
		}
		return time.Unix(secs, 0).In(now.Location()), nil
	}

	input := strings.ToLower(raw)
	switch input {
	case "now":
		return now, nil
	case "yesterday":
		return startOfDay(now).AddDate(0, 0, -1), nil
	case "today":
		return startOfDay(now), nil
	case "tomorrow":
		return startOfDay(now).AddDate(0, 0, 1), nil
	}

	if t, ok := parseWeekday(input, now); ok {
		return t, nil
	}

	if m := relativeAgoRegex.FindStringSubmatch(input); len(m) == 3 {
		return relative(now, m[1], m[2], -1, raw)
	}
	if m := relativeFutureRegex.FindStringSubmatch(input); len(m) == 3 {
		return relative(now, m[1], m[2], 1, raw)
	}

	if t, err := time.ParseInLocation("2006-01-02", raw, now.Location()); err == nil {
		return startOfDay(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time expression %q", raw)
}

// Unix parses s and renders it as a Unix seconds param value.
func Unix(s string, now time.Time) (string, error) {
	t, err := Parse(s, now)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(t.Unix(), 10), nil
}

// Window returns the since/until params for the given expressions; empty
// expressions are left out. since must not be after until.
func Window(since, until string, now time.Time) (map[string]string, error) {
	out := map[string]string{}
	var sinceT, untilT time.Time
	var err error
	if strings.TrimSpace(since) != "" {
		if sinceT, err = Parse(since, now); err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		out["since"] = strconv.FormatInt(sinceT.Unix(), 10)
	}
	if strings.TrimSpace(until) != "" {
		if untilT, err = Parse(until, now); err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		out["until"] = strconv.FormatInt(untilT.Unix(), 10)
	}
	if !sinceT.IsZero() && !untilT.IsZero() && sinceT.After(untilT) {
		return nil, fmt.Errorf("--since must be before --until")
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseWeekday(expr string, now time.Time) (time.Time, bool) {
	input := strings.TrimSpace(expr)
	next := false
	if rest, ok := strings.CutPrefix(input, "next "); ok {
		next = true
		input = strings.TrimSpace(rest)
	} else if rest, ok := strings.CutPrefix(input, "last "); ok {
		weekday, found := weekdays[strings.TrimSpace(rest)]
		if !found {
			return time.Time{}, false
		}
		base := startOfDay(now)
		delta := (int(base.Weekday()) - int(weekday) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return base.AddDate(0, 0, -delta), true
	} else if rest, ok := strings.CutPrefix(input, "this "); ok {
		input = strings.TrimSpace(rest)
	}

	weekday, ok := weekdays[input]
	if !ok {
		return time.Time{}, false
	}

	base := startOfDay(now)
	delta := (int(weekday) - int(base.Weekday()) + 7) % 7
	if next && delta == 0 {
		delta = 7
	}
	return base.AddDate(0, 0, delta), true
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func relative(now time.Time, amount, unit string, direction int, raw string) (time.Time, error) {
	value, err := strconv.Atoi(amount)
	if err != nil || value < 1 {
		return time.Time{}, fmt.Errorf("invalid relative time %q", raw)
	}
	n := direction * value
	switch unit {
	case "mo":
		return now.AddDate(0, n, 0), nil
	case "w":
		return now.AddDate(0, 0, 7*n), nil
	case "d":
		return now.AddDate(0, 0, n), nil
	case "h":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "m":
		return now.Add(time.Duration(n) * time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("invalid relative time unit %q", unit)
	}
}
