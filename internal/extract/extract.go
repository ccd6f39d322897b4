// Package extract pulls structured fields out of normalized terminal text.
//
// Every field helper is total: a missing or malformed field yields its
// documented default (0, "Unknown" or "") instead of an error. Matching is
// case-insensitive and spans lines; fields are looked up only inside the
// section that starts at a label and ends at the next sibling label.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"pkt.systems/ailimit/internal/ansi"
	"pkt.systems/ailimit/schema"
)

var (
	// a digit or decimal point before the number means a malformed value
	percentUsedRe = regexp.MustCompile(`(?is)(?:^|[^\d.])(\d+)%\s*used`)
	// Resets <expression> [(<zone>)]; the expression stops at the zone
	// parenthesis or the end of the line.
	resetRe = regexp.MustCompile(`(?i)Resets\s+([^(\r\n]+)(?:\(([^)\r\n]*)\))?`)
)

// Section returns the text from the first case-insensitive occurrence of
// label up to the earliest following occurrence of any of next. ok is false
// when label does not occur.
func Section(text, label string, next ...string) (section string, ok bool) {
	loc := foldIndex(text, label)
	if loc == nil {
		return "", false
	}
	start, body := loc[0], loc[1]
	end := len(text)
	for _, n := range next {
		if n == "" {
			continue
		}
		if i := foldIndex(text[body:], n); i != nil && body+i[0] < end {
			end = body + i[0]
		}
	}
	return text[start:end], true
}

// labelPatterns caches the case-insensitive pattern compiled for each label.
var labelPatterns sync.Map

func foldIndex(text, s string) []int {
	if re, ok := labelPatterns.Load(s); ok {
		return re.(*regexp.Regexp).FindStringIndex(text)
	}
	re, _ := labelPatterns.LoadOrStore(s, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(s)))
	return re.(*regexp.Regexp).FindStringIndex(text)
}

// PercentUsed returns the first "<N>% used" integer in text, or 0.
func PercentUsed(text string) int {
	m := percentUsedRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Reset returns the expression after the first "Resets" in text, trimmed, and
// the timezone annotation in parentheses if one follows. A missing expression
// is reported as schema.Unknown.
func Reset(text string) (expr, zone string) {
	m := resetRe.FindStringSubmatch(text)
	if m == nil {
		return schema.Unknown, ""
	}
	expr = strings.TrimSpace(m[1])
	if expr == "" {
		return schema.Unknown, ""
	}
	return expr, strings.TrimSpace(m[2])
}

// Window is a usage window rendered as a labeled section: a percentage bar
// followed by a reset line.
type Window struct {
	UsedPercent int
	Reset       string
	Zone        string
	// Present is false when the section label never appeared.
	Present bool
}

// ParseWindow reads the window that starts at label and ends at any of next.
func ParseWindow(text, label string, next ...string) Window {
	section, ok := Section(text, label, next...)
	if !ok {
		return Window{Reset: schema.Unknown}
	}
	expr, zone := Reset(section)
	return Window{
		UsedPercent: PercentUsed(section),
		Reset:       expr,
		Zone:        zone,
		Present:     true,
	}
}

// Rows applies re to every line of text and returns the submatches of the
// lines that matched. Lines that do not match are skipped.
func Rows(text string, re *regexp.Regexp) [][]string {
	var rows [][]string
	for _, line := range ansi.Lines(text) {
		if m := re.FindStringSubmatch(line); m != nil {
			rows = append(rows, m)
		}
	}
	return rows
}

// Contains reports whether marker occurs in text, ignoring case.
func Contains(text, marker string) bool {
	return foldIndex(text, marker) != nil
}
