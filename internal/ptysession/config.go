package ptysession

import "time"

// Config controls how an interactive program is started on a pseudo-terminal.
type Config struct {
	// Command is the program to run, resolved through PATH.
	Command string
	Args    []string
	// Dir is the working directory; empty inherits the caller's.
	Dir string
	// Env replaces the process environment; nil inherits the caller's.
	Env []string
	// Term is exported as TERM when non-empty.
	Term string
	Cols uint16
	Rows uint16
	// PollInterval is the debounce between predicate evaluations in WaitFor.
	PollInterval time.Duration
	// KillGrace is how long Close waits after SIGHUP before SIGKILL.
	KillGrace time.Duration
}

const (
	defaultCols         = 120
	defaultRows         = 40
	defaultTerm         = "xterm-color"
	defaultPollInterval = 500 * time.Millisecond
	minPollInterval     = 10 * time.Millisecond
	defaultKillGrace    = 500 * time.Millisecond
	drainTimeout        = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Cols == 0 {
		c.Cols = defaultCols
	}
	if c.Rows == 0 {
		c.Rows = defaultRows
	}
	if c.Term == "" {
		c.Term = defaultTerm
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollInterval < minPollInterval {
		c.PollInterval = minPollInterval
	}
	if c.KillGrace <= 0 {
		c.KillGrace = defaultKillGrace
	}
	return c
}
