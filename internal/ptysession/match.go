package ptysession

import (
	"fmt"
	"regexp"
	"strings"
)

// A Matcher reports whether normalized session output satisfies a condition.
// The string return is a human-readable description for logs.
type Matcher func(text string) (ok bool, description string)

// Text matches if the output contains s.
func Text(s string) Matcher {
	return func(text string) (bool, string) {
		return strings.Contains(text, s), fmt.Sprintf("output to contain %q", s)
	}
}

// AnyText matches if the output contains at least one of the markers.
func AnyText(markers ...string) Matcher {
	desc := fmt.Sprintf("output to contain any of %q", markers)
	return func(text string) (bool, string) {
		for _, marker := range markers {
			if strings.Contains(text, marker) {
				return true, desc
			}
		}
		return false, desc
	}
}

// Regexp matches if the output matches the regular expression.
// The pattern is compiled once; an invalid pattern causes a panic.
func Regexp(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(text string) (bool, string) {
		return re.MatchString(text), fmt.Sprintf("output to match regexp %q", pattern)
	}
}

// Any matches when at least one provided matcher matches.
func Any(matchers ...Matcher) Matcher {
	return func(text string) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(text)
			descs = append(descs, desc)
			if ok {
				return true, "any of: " + strings.Join(descs, ", ")
			}
		}
		return false, "any of: " + strings.Join(descs, ", ")
	}
}
