package dates

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goodsign/monday"
)

// FormatLong renders a date the way the assistant speaks it: "Lundi 20 janvier 2025".
func FormatLong(t time.Time) string {
	return capitalize(monday.Format(t, "Monday 02 January 2006", monday.LocaleFrFR))
}

// FormatWeekday renders the capitalised French weekday name.
func FormatWeekday(t time.Time) string {
	return capitalize(monday.Format(t, "Monday", monday.LocaleFrFR))
}

// FormatNumeric renders DD/MM/YYYY.
func FormatNumeric(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatClock renders "14h30", or "14h" on the hour.
func FormatClock(hour, minute int) string {
	if minute > 0 {
		return fmt.Sprintf("%02dh%02d", hour, minute)
	}
	return fmt.Sprintf("%02dh", hour)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
