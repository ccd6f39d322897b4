package gemini

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"pkt.systems/ailimit/internal/fakecli"
	"pkt.systems/ailimit/schema"
)

func TestMain(m *testing.M) {
	if fakecli.Requested() {
		os.Exit(fakecli.Main())
	}
	os.Exit(m.Run())
}

func TestParseRow(t *testing.T) {
	rows, err := Parse("gemini-2.5-flash   -   98.6% (Resets in 2h 39m)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []ModelUsage{{Model: "gemini-2.5-flash", Requests: "-", Usage: "98.6", Resets: "2h 39m"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %+v want %+v", rows, want)
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	text := "│ Session Stats │\n" +
		"│  gemini-2.5-flash    -    98,6% (Resets in 2h 39m) │\n" +
		"│  gemini-2.5-pro      12   100.0% (Resets in 23h 45m) │\n" +
		"│  gemini-2.0-flash    x    3% (Resets in 1h) │\n"
	rows, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []ModelUsage{{Model: "gemini-2.5-pro", Requests: "12", Usage: "100.0", Resets: "23h 45m"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %+v want %+v", rows, want)
	}
}

func TestParseKeepsLastRedraw(t *testing.T) {
	text := "gemini-2.5-pro  1  10.0% (Resets in 5h)\r\n" +
		"gemini-2.5-flash  -  20.0% (Resets in 1h)\r\n" +
		"gemini-2.5-pro  2  11.0% (Resets in 4h 59m)\r\n"
	rows, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 || rows[0].Model != "gemini-2.5-pro" || rows[0].Requests != "2" || rows[1].Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

const statsView = "╭──────────────────────────────────────────────────╮\r\n" +
	"│  Session Stats                                   │\r\n" +
	"│  Model Usage          Reqs    Usage              │\r\n" +
	"│  gemini-2.5-flash      -      98.6% (Resets in 2h 39m)  │\r\n" +
	"│  gemini-2.5-pro        12     100.0% (Resets in 23h 45m) │\r\n" +
	"╰──────────────────────────────────────────────────╯\r\n"

func TestStatsRenderedWaitsForClosedBox(t *testing.T) {
	full, err := Parse(statsView)
	if err != nil || len(full) != 2 {
		t.Fatalf("parse full view: %+v %v", full, err)
	}
	for i := range len(statsView) + 1 {
		partial := statsView[:i]
		ok, _ := statsRendered(partial)
		if !ok {
			continue
		}
		rows, err := Parse(partial)
		if err != nil || !reflect.DeepEqual(rows, full) {
			t.Fatalf("view reported complete after %d bytes: %+v %v", i, rows, err)
		}
	}
	if ok, _ := statsRendered(statsView); !ok {
		t.Fatalf("expected closed stats box to match")
	}
	if ok, _ := statsRendered("╰──╯\r\n│  Session Stats  │\r\n"); ok {
		t.Fatalf("expected an earlier box border not to match")
	}
	if ok, _ := statsRendered("│  Session Stats  │\r\n╰──╯\r\n"); !ok {
		t.Fatalf("expected an empty closed stats box to match")
	}
}

func TestParseViewMissing(t *testing.T) {
	_, err := Parse("Type your message\n> /stats\n")
	if !errors.Is(err, schema.ErrViewMissing) {
		t.Fatalf("expected ErrViewMissing, got %v", err)
	}
}

func TestParseMarkerWithoutRows(t *testing.T) {
	rows, err := Parse("Model Usage\nsomething odd (Resets in a while)\n")
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty rows without error, got %+v %v", rows, err)
	}
}

func TestStatusFrom(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	rows := []ModelUsage{
		{Model: "gemini-2.5-flash", Requests: "-", Usage: "98.6", Resets: "2h 39m"},
		{Model: "gemini-2.5-pro", Requests: "12", Usage: "100.0", Resets: "23h 45m"},
	}

	st := StatusFrom(rows, DefaultThreshold, now)
	if !st.Limited() {
		t.Fatalf("expected limited, got %+v", st)
	}
	if want := now.Add(23*time.Hour + 45*time.Minute); st.ResetAt != want.UnixMilli() {
		t.Fatalf("expected reset of the limited model, got %s", st.ResetAtHuman)
	}
	if st.UsedPercent == nil || *st.UsedPercent != 100 {
		t.Fatalf("unexpected used percent %v", st.UsedPercent)
	}

	st = StatusFrom(rows[:1], DefaultThreshold, now)
	if st.Limited() {
		t.Fatalf("98.6%% is below the threshold, got %+v", st)
	}
	if want := now.Add(2*time.Hour + 39*time.Minute); st.ResetAt != want.UnixMilli() || st.ResetAtHuman != want.Format(time.RFC3339) {
		t.Fatalf("expected earliest reset, got %+v", st)
	}

	st = StatusFrom(nil, DefaultThreshold, now)
	if st.Limited() || st.ResetAt != 0 || st.ResetAtHuman != schema.Unknown {
		t.Fatalf("expected unknown available status, got %+v", st)
	}
}

func fastTimings() Timings {
	return Timings{
		Ready:       5 * time.Second,
		Stats:       5 * time.Second,
		StatsSettle: 20 * time.Millisecond,
		ExitSettle:  50 * time.Millisecond,
	}
}

func TestGetUsageStatsAgainstTerminal(t *testing.T) {
	c := New(Config{
		Binary:       os.Args[0],
		Env:          fakecli.Env("gemini"),
		PollInterval: 20 * time.Millisecond,
		Timings:      fastTimings(),
	})
	rows, err := c.GetUsageStats(context.Background())
	if err != nil {
		t.Fatalf("get usage stats: %v", err)
	}
	want := []ModelUsage{
		{Model: "gemini-2.5-flash", Requests: "-", Usage: "98.6", Resets: "2h 39m"},
		{Model: "gemini-2.5-pro", Requests: "12", Usage: "100.0", Resets: "23h 45m"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %+v want %+v", rows, want)
	}

	st, err := c.Status(context.Background(), time.Now())
	if err != nil || !st.Limited() {
		t.Fatalf("expected limited status, got %+v %v", st, err)
	}
}

func TestGetUsageStatsEmptyView(t *testing.T) {
	c := New(Config{
		Binary:       os.Args[0],
		Env:          fakecli.Env("gemini-empty"),
		PollInterval: 20 * time.Millisecond,
		Timings: Timings{
			Ready:       5 * time.Second,
			Stats:       300 * time.Millisecond,
			StatsSettle: 10 * time.Millisecond,
			ExitSettle:  50 * time.Millisecond,
		},
	})
	_, err := c.GetUsageStats(context.Background())
	if !errors.Is(err, schema.ErrViewMissing) {
		t.Fatalf("expected ErrViewMissing, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	if c.cfg.Binary != "gemini" || !reflect.DeepEqual(c.cfg.Args, []string{"--yolo"}) {
		t.Fatalf("unexpected defaults %+v", c.cfg)
	}
	if c.cfg.Threshold != DefaultThreshold || c.cfg.Timings != DefaultTimings() {
		t.Fatalf("unexpected defaults %+v", c.cfg)
	}
	if err := New(Config{Binary: "ailimit-no-such-gemini"}).Available(context.Background()); !errors.Is(err, schema.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
