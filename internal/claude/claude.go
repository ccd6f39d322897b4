// Package claude reads subscription usage from the interactive claude CLI.
package claude

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"pkt.systems/ailimit/internal/extract"
	"pkt.systems/ailimit/internal/logx"
	"pkt.systems/ailimit/internal/ptysession"
	"pkt.systems/ailimit/internal/resettime"
	"pkt.systems/ailimit/internal/script"
	"pkt.systems/ailimit/schema"
)

const (
	sessionLabel = "Current session"
	weekLabel    = "Current week"

	noSubscription = "only available for subscription plans"
)

var readyMarkers = []string{"Type your message", "Type a message", "Tips for getting started", "? for shortcuts"}

// usageRendered matches once the usage view is complete: the weekly reset
// line has ended, the exit hint is shown, or the plan has no usage view.
var usageRendered = ptysession.Any(
	ptysession.Regexp(`(?is)`+weekLabel+`.*?Resets[^\r\n]*\r?\n`),
	ptysession.Text("Esc to exit"),
	ptysession.Text(noSubscription),
)

// Timings bounds the script waits and the fixed settle delays between keystrokes.
type Timings struct {
	Ready  time.Duration
	Result time.Duration

	ClearSettle  time.Duration
	TypeSettle   time.Duration
	EnterSettle  time.Duration
	EscapeSettle time.Duration
	ExitSettle   time.Duration
}

// DefaultTimings returns the delays the claude TUI needs in practice.
func DefaultTimings() Timings {
	return Timings{
		Ready:        15 * time.Second,
		Result:       10 * time.Second,
		ClearSettle:  200 * time.Millisecond,
		TypeSettle:   300 * time.Millisecond,
		EnterSettle:  500 * time.Millisecond,
		EscapeSettle: 500 * time.Millisecond,
		ExitSettle:   time.Second,
	}
}

// Config describes how to launch the CLI.
type Config struct {
	Binary       string
	Args         []string
	Env          []string
	Cols         uint16
	Rows         uint16
	PollInterval time.Duration
	Timings      Timings
	DumpDir      string
}

// Usage is the claude usage view.
type Usage struct {
	SessionUsed     int
	SessionReset    string
	SessionZone     string
	WeeklyUsed      int
	WeeklyReset     string
	WeeklyZone      string
	HasSubscription bool
}

// Client drives the claude CLI.
type Client struct {
	cfg Config
}

// New returns a client; an empty binary defaults to "claude".
func New(cfg Config) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "claude"
	}
	if cfg.Timings == (Timings{}) {
		cfg.Timings = DefaultTimings()
	}
	return &Client{cfg: cfg}
}

// ID implements core.Provider.
func (c *Client) ID() schema.ProviderID {
	return schema.ProviderClaude
}

// Available reports whether the CLI can be found.
func (c *Client) Available(context.Context) error {
	if _, err := exec.LookPath(c.cfg.Binary); err != nil {
		return fmt.Errorf("%w: %s CLI is not available on this system", schema.ErrProviderUnavailable, c.cfg.Binary)
	}
	return nil
}

// Steps returns the usage script: wait for the prompt, clear the line, type
// /usage and enter, wait for the usage or no-subscription view, then leave.
func Steps(t Timings) []script.Step {
	return []script.Step{
		script.Await("ready", ptysession.AnyText(readyMarkers...), t.Ready),
		script.Send("clear", "\x15"),
		script.Settle("clear", t.ClearSettle),
		script.Send("command", "/usage"),
		script.Settle("command", t.TypeSettle),
		script.Send("enter", "\r"),
		script.Settle("enter", t.EnterSettle),
		script.Await("usage", usageRendered, t.Result),
		script.Send("escape", "\x1b"),
		script.Settle("escape", t.EscapeSettle),
		script.Send("clear", "\x15"),
		script.Settle("clear", t.ClearSettle),
		script.Send("exit", "/exit\r"),
		script.Settle("exit", t.ExitSettle),
	}
}

// GetUsage runs the usage script once and parses whatever was captured.
func (c *Client) GetUsage(ctx context.Context) (Usage, error) {
	capture, err := script.RunSession(ctx, ptysession.Config{
		Command:      c.cfg.Binary,
		Args:         c.cfg.Args,
		Env:          c.cfg.Env,
		Cols:         c.cfg.Cols,
		Rows:         c.cfg.Rows,
		PollInterval: c.cfg.PollInterval,
	}, Steps(c.cfg.Timings), script.SessionOptions{Provider: string(schema.ProviderClaude), DumpDir: c.cfg.DumpDir})
	if err != nil {
		return Usage{}, err
	}
	usage := Parse(capture.Text)
	logx.Ctx(ctx).Debug("claude usage parsed",
		"usage_view", capture.Result.Matched("usage"),
		"session_used", usage.SessionUsed,
		"weekly_used", usage.WeeklyUsed,
		"subscription", usage.HasSubscription,
	)
	return usage, nil
}

// Status implements core.Provider.
func (c *Client) Status(ctx context.Context, now time.Time) (schema.Status, error) {
	usage, err := c.GetUsage(ctx)
	if err != nil {
		return schema.Status{}, err
	}
	return StatusFrom(usage, now), nil
}

// Parse extracts the usage view. It never fails: absent fields keep their
// defaults (0 and "Unknown").
func Parse(text string) Usage {
	session := extract.ParseWindow(text, sessionLabel, weekLabel)
	week := extract.ParseWindow(text, weekLabel, sessionLabel)
	return Usage{
		SessionUsed:     session.UsedPercent,
		SessionReset:    session.Reset,
		SessionZone:     session.Zone,
		WeeklyUsed:      week.UsedPercent,
		WeeklyReset:     week.Reset,
		WeeklyZone:      week.Zone,
		HasSubscription: !extract.Contains(text, noSubscription),
	}
}

// StatusFrom maps usage to a status. Either window at 100% means limited; the
// reported reset is the latest one among exhausted windows, or the session
// reset when nothing is exhausted.
func StatusFrom(u Usage, now time.Time) schema.Status {
	st := schema.Status{Provider: schema.ProviderClaude, State: schema.StateAvailable}
	used := float64(u.SessionUsed)
	st.UsedPercent = &used

	type window struct {
		used       int
		expr, zone string
	}
	session := window{u.SessionUsed, u.SessionReset, u.SessionZone}
	week := window{u.WeeklyUsed, u.WeeklyReset, u.WeeklyZone}

	candidates := []window{session}
	if session.used >= 100 || week.used >= 100 {
		st.State = schema.StateRateLimited
		candidates = candidates[:0]
		for _, w := range []window{session, week} {
			if w.used >= 100 {
				candidates = append(candidates, w)
			}
		}
		if week.used > session.used {
			weekly := float64(week.used)
			st.UsedPercent = &weekly
		}
	}

	var latest time.Time
	human := schema.Unknown
	for _, w := range candidates {
		if w.expr == "" || w.expr == schema.Unknown {
			continue
		}
		human = w.expr
		at, ok := resettime.InZone(w.expr, w.zone, now)
		if ok && at.After(latest) {
			latest = at
		}
	}
	if !latest.IsZero() {
		st.ResetAt = latest.UnixMilli()
		st.ResetAtHuman = latest.UTC().Format(time.RFC3339)
	} else {
		st.ResetAtHuman = human
	}
	return st
}
