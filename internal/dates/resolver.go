// Package dates resolves the French date and time expressions callers use
// when asking for an appointment ("demain", "mardi prochain", "14h30").
package dates

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrUnparseableTime is returned when a time expression matches none of the
// accepted forms.
var ErrUnparseableTime = errors.New("dates: unparseable time expression")

// Kind tells how a date expression was understood.
type Kind int

const (
	// KindRelative covers aujourd'hui, demain, après-demain and semaine prochaine.
	KindRelative Kind = iota
	// KindWeekday is a weekday name resolved to its next occurrence.
	KindWeekday
	// KindAbsolute is an explicit calendar date.
	KindAbsolute
	// KindFallback means nothing matched and the reference date was used.
	KindFallback
)

func (k Kind) String() string {
	switch k {
	case KindRelative:
		return "relative"
	case KindWeekday:
		return "weekday"
	case KindAbsolute:
		return "absolute"
	default:
		return "fallback"
	}
}

// Resolution is the outcome of ResolveDate. Date is midnight in the
// reference location.
type Resolution struct {
	Date time.Time
	Kind Kind
}

// IsFallback reports whether the expression could not be understood.
func (r Resolution) IsFallback() bool {
	return r.Kind == KindFallback
}

var relativeOffsets = map[string]int{
	"aujourd'hui":          0,
	"ce jour":              0,
	"demain":               1,
	"après-demain":         2,
	"apres-demain":         2,
	"après demain":         2,
	"apres demain":         2,
	"semaine prochaine":    7,
	"la semaine prochaine": 7,
	"dans une semaine":     7,
}

// Ordered Monday first; matching is by substring so order decides ties.
var weekdayNames = []string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"}

var frenchMonths = strings.NewReplacer(
	"janvier", "January",
	"février", "February",
	"fevrier", "February",
	"mars", "March",
	"avril", "April",
	"mai", "May",
	"juin", "June",
	"juillet", "July",
	"août", "August",
	"aout", "August",
	"septembre", "September",
	"octobre", "October",
	"novembre", "November",
	"décembre", "December",
	"decembre", "December",
)

var (
	firstOfMonth = regexp.MustCompile(`\b1er\b`)
	hasDigit     = regexp.MustCompile(`\d`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// ResolveDate maps a French date expression to a calendar date relative to
// reference. Unknown input resolves to the reference day with KindFallback.
func ResolveDate(expression string, reference time.Time) Resolution {
	today := StartOfDay(reference)
	expr := normalize(expression)

	if offset, ok := relativeOffsets[expr]; ok {
		return Resolution{Date: today.AddDate(0, 0, offset), Kind: KindRelative}
	}

	for index, name := range weekdayNames {
		if !strings.Contains(expr, name) {
			continue
		}
		daysAhead := index - MondayIndex(today.Weekday())
		if daysAhead <= 0 || strings.Contains(expr, "prochain") {
			daysAhead += 7
		}
		return Resolution{Date: today.AddDate(0, 0, daysAhead), Kind: KindWeekday}
	}

	if date, ok := parseAbsolute(expr, today); ok {
		return Resolution{Date: date, Kind: KindAbsolute}
	}
	return Resolution{Date: today, Kind: KindFallback}
}

var (
	fullLayouts = []string{"2/1/2006", "2-1-2006", "2.1.2006", "2006-01-02", "2 January 2006"}
	// Day and month without a year are taken in the reference year.
	yearlessLayouts = []string{"2/1", "2-1", "2.1", "2 January"}
)

func parseAbsolute(expr string, today time.Time) (time.Time, bool) {
	if !hasDigit.MatchString(expr) {
		return time.Time{}, false
	}
	loc := today.Location()
	translated := frenchMonths.Replace(firstOfMonth.ReplaceAllString(expr, "1"))

	for _, layout := range fullLayouts {
		if t, err := time.ParseInLocation(layout, translated, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, translated, loc); err == nil {
			return time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}
	if t, err := dateparse.ParseIn(translated, loc, dateparse.PreferMonthFirst(false)); err == nil {
		return StartOfDay(t.In(loc)), true
	}
	return time.Time{}, false
}

var (
	hourMinuteH = regexp.MustCompile(`^(\d{1,2})\s*h\s*(\d{1,2})?$`)
	hourColon   = regexp.MustCompile(`^(\d{1,2})\s*:\s*(\d{1,2})$`)
	bareHour    = regexp.MustCompile(`^(\d{1,2})$`)
)

// ResolveTime parses "14h30", "14h", "14:30" or "14" into hour and minute.
// Bounds are not checked here.
func ResolveTime(expression string) (hour, minute int, err error) {
	expr := normalize(expression)
	var m []string
	switch {
	case hourMinuteH.MatchString(expr):
		m = hourMinuteH.FindStringSubmatch(expr)
	case hourColon.MatchString(expr):
		m = hourColon.FindStringSubmatch(expr)
	case bareHour.MatchString(expr):
		m = append(bareHour.FindStringSubmatch(expr), "")
	default:
		return 0, 0, ErrUnparseableTime
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	return hour, minute, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// MondayIndex numbers weekdays from Monday = 0 to Sunday = 6.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	return MondayIndex(t.Weekday()) >= 5
}

func normalize(expression string) string {
	expr := strings.ToLower(strings.TrimSpace(expression))
	expr = strings.ReplaceAll(expr, "’", "'")
	return whitespace.ReplaceAllString(expr, " ")
}
