// Package gemini reads per-model quota rows from the interactive gemini CLI.
package gemini

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"pkt.systems/ailimit/internal/extract"
	"pkt.systems/ailimit/internal/logx"
	"pkt.systems/ailimit/internal/ptysession"
	"pkt.systems/ailimit/internal/resettime"
	"pkt.systems/ailimit/internal/script"
	"pkt.systems/ailimit/schema"
)

// DefaultThreshold is the usage percentage at which a model counts as limited.
const DefaultThreshold = 99.0

const resetsMarker = "Resets in"

// rowRe matches one model row of the /stats view:
//
//	gemini-2.5-flash   -   98.6% (Resets in 2h 39m)
var rowRe = regexp.MustCompile(`(gemini[\w.-]+)\s+(-|\d+)\s+([\d.]+)%\s*\(Resets in ([^)]+)\)`)

var readyMarkers = []string{"Type your message", "/exit"}

// statsRendered matches once the stats box is closed below its rows.
var statsRendered = ptysession.Any(
	ptysession.Regexp(`(?s)Resets in [^)]*\).*╰`),
	ptysession.Regexp(`(?s)Session Stats.*╰`),
)

// ModelUsage is one row of the stats table.
type ModelUsage struct {
	Model    string
	Requests string
	Usage    string
	Resets   string
}

// Percent returns the usage as a number; malformed values read as 0.
func (m ModelUsage) Percent() float64 {
	v, err := strconv.ParseFloat(m.Usage, 64)
	if err != nil {
		return 0
	}
	return v
}

// Timings bounds the script waits and settle delays.
type Timings struct {
	Ready       time.Duration
	Stats       time.Duration
	StatsSettle time.Duration
	ExitSettle  time.Duration
}

// DefaultTimings returns the delays the gemini TUI needs in practice.
func DefaultTimings() Timings {
	return Timings{
		Ready:       15 * time.Second,
		Stats:       10 * time.Second,
		StatsSettle: 500 * time.Millisecond,
		ExitSettle:  time.Second,
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
	// Threshold is the limited cutoff in percent; zero means DefaultThreshold.
	Threshold float64
	DumpDir   string
}

// Client drives the gemini CLI.
type Client struct {
	cfg Config
}

// New returns a client; an empty binary defaults to "gemini --yolo".
func New(cfg Config) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "gemini"
		if cfg.Args == nil {
			cfg.Args = []string{"--yolo"}
		}
	}
	if cfg.Timings == (Timings{}) {
		cfg.Timings = DefaultTimings()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Client{cfg: cfg}
}

// ID implements core.Provider.
func (c *Client) ID() schema.ProviderID {
	return schema.ProviderGemini
}

// Available reports whether the CLI can be found.
func (c *Client) Available(context.Context) error {
	if _, err := exec.LookPath(c.cfg.Binary); err != nil {
		return fmt.Errorf("%w: %s CLI is not available on this system", schema.ErrProviderUnavailable, c.cfg.Binary)
	}
	return nil
}

// Steps returns the stats script: wait for the prompt, run /stats, wait for
// the quota rows to render, then quit.
func Steps(t Timings) []script.Step {
	return []script.Step{
		script.Await("ready", ptysession.AnyText(readyMarkers...), t.Ready),
		script.Send("command", "/stats\r"),
		script.Await("stats", statsRendered, t.Stats),
		script.Settle("stats", t.StatsSettle),
		script.Send("exit", "/exit\r"),
		script.Settle("exit", t.ExitSettle),
	}
}

// GetUsageStats runs the stats script once and parses the model rows.
func (c *Client) GetUsageStats(ctx context.Context) ([]ModelUsage, error) {
	capture, err := script.RunSession(ctx, ptysession.Config{
		Command:      c.cfg.Binary,
		Args:         c.cfg.Args,
		Env:          c.cfg.Env,
		Cols:         c.cfg.Cols,
		Rows:         c.cfg.Rows,
		PollInterval: c.cfg.PollInterval,
	}, Steps(c.cfg.Timings), script.SessionOptions{Provider: string(schema.ProviderGemini), DumpDir: c.cfg.DumpDir})
	if err != nil {
		return nil, err
	}
	rows, err := Parse(capture.Text)
	logx.Ctx(ctx).Debug("gemini stats parsed", "stats_view", capture.Result.Matched("stats"), "rows", len(rows), "err", err)
	return rows, err
}

// Status implements core.Provider.
func (c *Client) Status(ctx context.Context, now time.Time) (schema.Status, error) {
	rows, err := c.GetUsageStats(ctx)
	if err != nil {
		return schema.Status{}, err
	}
	return StatusFrom(rows, c.cfg.Threshold, now), nil
}

// Parse extracts model rows line by line. A TUI may redraw the table, so the
// last rendering of each model wins while first-seen order is kept. Zero rows
// is an error only when the "Resets in" marker is missing too.
func Parse(text string) ([]ModelUsage, error) {
	var rows []ModelUsage
	index := map[string]int{}
	for _, m := range extract.Rows(text, rowRe) {
		row := ModelUsage{Model: m[1], Requests: m[2], Usage: m[3], Resets: m[4]}
		if i, ok := index[row.Model]; ok {
			rows[i] = row
			continue
		}
		index[row.Model] = len(rows)
		rows = append(rows, row)
	}
	if len(rows) == 0 && !extract.Contains(text, resetsMarker) {
		return nil, fmt.Errorf("gemini /stats: %w: %q not found", schema.ErrViewMissing, resetsMarker)
	}
	return rows, nil
}

// StatusFrom maps rows to a status. Any model at or above threshold means
// limited; the reset is the earliest among limited models, or the earliest
// overall when nothing is limited.
func StatusFrom(rows []ModelUsage, threshold float64, now time.Time) schema.Status {
	st := schema.Status{Provider: schema.ProviderGemini, State: schema.StateAvailable, ResetAtHuman: schema.Unknown}
	if len(rows) == 0 {
		return st
	}
	limited := false
	maxUsed := 0.0
	for _, r := range rows {
		p := r.Percent()
		if p >= threshold {
			limited = true
		}
		if p > maxUsed {
			maxUsed = p
		}
	}
	st.UsedPercent = &maxUsed
	if limited {
		st.State = schema.StateRateLimited
	}

	var earliest time.Time
	for _, r := range rows {
		if limited && r.Percent() < threshold {
			continue
		}
		at, ok := resettime.ToAbsolute(r.Resets, now)
		if ok && (earliest.IsZero() || at.Before(earliest)) {
			earliest = at
		}
	}
	if !earliest.IsZero() {
		st.ResetAt = earliest.UnixMilli()
		st.ResetAtHuman = earliest.UTC().Format(time.RFC3339)
	}
	return st
}
