// Package ansi removes terminal control sequences from captured PTY output.
package ansi

import (
	"regexp"
	"strings"
)

const esc = "\x1b"

var (
	// SGR color and style: ESC [ params m
	styleRe = regexp.MustCompile(`\x1b\[[0-9;:]*m`)
	// cursor movement, erase and private mode toggles: ESC [ ? params letter
	cursorRe = regexp.MustCompile(`\x1b\[\??[0-9;]*[A-Za-z]`)
	// any remaining CSI, OSC, charset designation and two-byte escapes
	genericRe = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)?|\x1b[()*+][0-9A-Za-z]|\x1b[@-Z\\-_=>78]`)
)

// maxPasses bounds the fixpoint loop; nested fragments such as "\x1b\x1b[0m[31m"
// only need a couple of passes.
const maxPasses = 8

// Strip removes color/style, cursor-movement and generic escape sequences, in
// that order, and then any stray ESC byte left behind. Non-escape characters
// keep their content and relative order. Strip is idempotent.
func Strip(raw string) string {
	if !strings.Contains(raw, esc) {
		return raw
	}
	out := raw
	for i := 0; i < maxPasses; i++ {
		next := styleRe.ReplaceAllString(out, "")
		next = cursorRe.ReplaceAllString(next, "")
		next = genericRe.ReplaceAllString(next, "")
		if next == out {
			break
		}
		out = next
		if !strings.Contains(out, esc) {
			return out
		}
	}
	return strings.ReplaceAll(out, esc, "")
}

// Lines splits normalized text on any line terminator (CRLF, CR or LF).
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
