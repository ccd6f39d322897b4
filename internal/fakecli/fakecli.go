// Package fakecli is a scripted stand-in for the interactive provider CLIs.
// Test binaries re-exec themselves with EnvMode set and call Main from TestMain,
// so sessions run against a real pseudo-terminal without the vendor tools.
//
// Modes:
//   - echo: prints "ready>", answers "size" with the terminal size, "quit" exits,
//     anything else is echoed as "got: <line>"
//   - claude, claude-nosub: banner with "? for shortcuts", "/usage" renders the usage view
//   - gemini, gemini-empty: banner with "Type your message", "/stats" renders model rows
//   - silent: prints nothing and ignores input and SIGHUP until killed
//   - exit: prints "bye" and exits immediately
package fakecli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
)

// EnvMode selects the fake program behavior.
const EnvMode = "AILIMIT_FAKECLI"

// Requested reports whether the current process was started as a fake CLI.
func Requested() bool {
	return os.Getenv(EnvMode) != ""
}

// Env returns the process environment with the given mode selected.
func Env(mode string) []string {
	return append(os.Environ(), EnvMode+"="+mode)
}

// Main runs the fake program selected by EnvMode and returns its exit code.
func Main() int {
	mode := os.Getenv(EnvMode)
	out := os.Stdout
	switch mode {
	case "echo":
		return runEcho(os.Stdin, out)
	case "claude":
		return runInteractive(os.Stdin, out, claudeBanner, map[string]string{"/usage": claudeUsage})
	case "claude-nosub":
		return runInteractive(os.Stdin, out, claudeBanner, map[string]string{"/usage": claudeNoSubscription})
	case "gemini":
		return runInteractive(os.Stdin, out, geminiBanner, map[string]string{"/stats": geminiStats})
	case "gemini-empty":
		return runInteractive(os.Stdin, out, geminiBanner, map[string]string{"/stats": geminiNoRows})
	case "silent":
		signal.Ignore(syscall.SIGHUP)
		time.Sleep(time.Hour)
		return 0
	case "exit":
		fmt.Fprint(out, "bye\r\n")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "fakecli: unknown mode %q\n", mode)
		return 2
	}
}

func runEcho(in io.Reader, out io.Writer) int {
	fmt.Fprint(out, "ready>")
	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadString('\n')
		input := cleanInput(line)
		switch {
		case input == "":
		case input == "quit":
			return 0
		case input == "size":
			cols, rows, sizeErr := term.GetSize(int(os.Stdin.Fd()))
			if sizeErr != nil {
				fmt.Fprintf(out, "size: error %v\r\n", sizeErr)
			} else {
				fmt.Fprintf(out, "size: %dx%d\r\n", cols, rows)
			}
			fmt.Fprint(out, "ready>")
		default:
			fmt.Fprintf(out, "got: %s\r\n", input)
			fmt.Fprint(out, "ready>")
		}
		if err != nil {
			return 0
		}
	}
}

func runInteractive(in io.Reader, out io.Writer, banner string, views map[string]string) int {
	writeFragmented(out, banner)
	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadString('\n')
		input := cleanInput(line)
		if input == "/exit" {
			fmt.Fprint(out, "\x1b[2K\x1b[1GGoodbye!\r\n")
			return 0
		}
		if view, ok := views[input]; ok {
			time.Sleep(150 * time.Millisecond)
			writeFragmented(out, view)
		}
		if err != nil {
			return 0
		}
	}
}

// writeFragmented splits output into small chunks, cutting through escape
// sequences, the way a redrawing TUI streams to its terminal.
func writeFragmented(out io.Writer, text string) {
	const chunk = 7
	for len(text) > 0 {
		n := chunk
		if n > len(text) {
			n = len(text)
		}
		_, _ = io.WriteString(out, text[:n])
		text = text[n:]
		time.Sleep(2 * time.Millisecond)
	}
}

func cleanInput(line string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, line))
}

const claudeBanner = "\x1b]0;✳ Claude\x07\x1b[?25l" +
	"\x1b[38;5;174m╭────────────────────────────────────╮\x1b[39m\r\n" +
	"\x1b[38;5;174m│\x1b[39m ✻ Welcome to \x1b[1mClaude\x1b[22m!              \x1b[38;5;174m│\x1b[39m\r\n" +
	"\x1b[38;5;174m╰────────────────────────────────────╯\x1b[39m\r\n" +
	"\x1b[2m  ? for shortcuts\x1b[22m\r\n> "

const claudeUsage = "\x1b[2K\x1b[1G\x1b[1m Settings: Status  Config  \x1b[7mUsage\x1b[27m\x1b[22m\r\n\r\n" +
	" \x1b[1mCurrent session\x1b[22m\r\n" +
	" \x1b[38;5;174m██████████████████████████████████████████▌\x1b[39m       87% used\r\n" +
	" Resets 4pm (Europe/Berlin)\r\n\r\n" +
	" \x1b[1mCurrent week (all models)\x1b[22m\r\n" +
	" \x1b[38;5;174m██████████\x1b[39m                                        20% used\r\n" +
	" Resets Jan 10, 12pm (Europe/Berlin)\r\n\r\n" +
	"\x1b[2m Esc to exit\x1b[22m\r\n"

const claudeNoSubscription = "\x1b[2K\x1b[1G /usage is only available for subscription plans.\r\n> "

const geminiBanner = "\x1b[38;2;71;150;228m███ GEMINI\x1b[39m\r\n" +
	"Tips for getting started:\r\n" +
	"\x1b[90m╭──────────────────────────────────────────────╮\x1b[39m\r\n" +
	"\x1b[90m│\x1b[39m >   Type your message or @path/to/file      \x1b[90m│\x1b[39m\r\n" +
	"\x1b[90m╰──────────────────────────────────────────────╯\x1b[39m\r\n"

const geminiStats = "\x1b[90m╭────────────────────────────────────────────────────────────────────╮\x1b[39m\r\n" +
	"\x1b[90m│\x1b[39m  \x1b[1mSession Stats\x1b[22m                                                      \x1b[90m│\x1b[39m\r\n" +
	"\x1b[90m│\x1b[39m  Model Usage                 Reqs                  Usage               \x1b[90m│\x1b[39m\r\n" +
	"\x1b[90m│\x1b[39m  gemini-2.5-flash               -    \x1b[33m98.6%\x1b[39m (Resets in 2h 39m)          \x1b[90m│\x1b[39m\r\n" +
	"\x1b[90m│\x1b[39m  gemini-2.5-pro                 12   \x1b[31m100.0%\x1b[39m (Resets in 23h 45m)        \x1b[90m│\x1b[39m\r\n" +
	"\x1b[90m╰────────────────────────────────────────────────────────────────────╯\x1b[39m\r\n"

const geminiNoRows = "\x1b[90m╭──────────────────────────╮\x1b[39m\r\n" +
	"\x1b[90m│\x1b[39m  Session Stats            \x1b[90m│\x1b[39m\r\n" +
	"\x1b[90m╰──────────────────────────╯\x1b[39m\r\n"
