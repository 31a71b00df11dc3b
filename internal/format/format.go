package format

import (
	"strings"
	"time"
)

var frMonths = [...]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."}

// FmtDate formats t in a locale-friendly short form.
func FmtDate(t time.Time, lang string) string {
	if t.IsZero() {
		return ""
	}
	switch strings.ToLower(lang) {
	case "fr":
		return t.Format("2") + " " + frMonths[t.Month()-1] + " " + t.Format("2006")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// ISODate is the machine-readable form used in <time datetime> and JSON-LD.
func ISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// Year returns the calendar year of t, used for the copyright line.
func Year(t time.Time) int { return t.Year() }
