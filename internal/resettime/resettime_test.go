package resettime

import (
	"testing"
	"time"
)

func TestRelative(t *testing.T) {
	t0 := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	tests := map[string]time.Duration{
		"2h 39m":    2*time.Hour + 39*time.Minute,
		"23h 45m":   23*time.Hour + 45*time.Minute,
		"1d 2h 30m": 26*time.Hour + 30*time.Minute,
		"45m":       45 * time.Minute,
		"3d":        72 * time.Hour,
		" 1h ":      time.Hour,
		"1d2h":      26 * time.Hour,
	}
	for expr, d := range tests {
		got, ok := ToAbsolute(expr, t0)
		if !ok || !got.Equal(t0.Add(d)) {
			t.Fatalf("ToAbsolute(%q) = %v, %v; want %v", expr, got, ok, t0.Add(d))
		}
	}
}

func TestClockRollsForward(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	fivePM := time.Date(2025, 3, 4, 17, 0, 0, 0, loc)
	twoPM := time.Date(2025, 3, 4, 14, 0, 0, 0, loc)

	got, ok := ToAbsolute("4pm", fivePM)
	if want := time.Date(2025, 3, 5, 16, 0, 0, 0, loc); !ok || !got.Equal(want) {
		t.Fatalf("after 4pm: got %v want %v", got, want)
	}
	got, ok = ToAbsolute("4pm", twoPM)
	if want := time.Date(2025, 3, 4, 16, 0, 0, 0, loc); !ok || !got.Equal(want) {
		t.Fatalf("before 4pm: got %v want %v", got, want)
	}
	exact := time.Date(2025, 3, 4, 16, 0, 0, 0, loc)
	got, ok = ToAbsolute("4pm", exact)
	if !ok || !got.Equal(exact) {
		t.Fatalf("at 4pm: got %v want %v", got, exact)
	}
}

func TestClockForms(t *testing.T) {
	t0 := time.Date(2025, 3, 4, 0, 30, 0, 0, time.UTC)
	tests := []struct {
		expr string
		want time.Time
	}{
		{"12am", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"12pm", time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)},
		{"11:30am", time.Date(2025, 3, 4, 11, 30, 0, 0, time.UTC)},
		{"9 PM", time.Date(2025, 3, 4, 21, 0, 0, 0, time.UTC)},
		{"1am", time.Date(2025, 3, 4, 1, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, ok := ToAbsolute(tc.expr, t0)
		if !ok || !got.Equal(tc.want) {
			t.Fatalf("ToAbsolute(%q) = %v, %v; want %v", tc.expr, got, ok, tc.want)
		}
	}
}

func TestDateAndClock(t *testing.T) {
	t0 := time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC)
	got, ok := ToAbsolute("Jan 10, 12pm", t0)
	if want := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC); !ok || !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	got, ok = ToAbsolute("Dec 24, 3:15pm", t0)
	if want := time.Date(2025, 12, 24, 15, 15, 0, 0, time.UTC); !ok || !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if _, ok := ToAbsolute("Feb 30, 1pm", t0); ok {
		t.Fatalf("expected impossible date to be rejected")
	}
}

func TestEpochPassThrough(t *testing.T) {
	got, ok := ToAbsolute("1767225600000", time.Now())
	if !ok || got.UnixMilli() != 1767225600000 {
		t.Fatalf("got %v %v", got, ok)
	}
}

func TestEpochSecondsByMagnitude(t *testing.T) {
	got, ok := ToAbsolute("1700000000", time.Now())
	if !ok || got.Unix() != 1700000000 {
		t.Fatalf("got %v %v", got, ok)
	}
	if got.Year() != 2023 {
		t.Fatalf("expected epoch seconds to land in 2023, got %v", got)
	}
}

func TestUnknownForms(t *testing.T) {
	for _, expr := range []string{"", "Unknown", "soon", "13pm", "4:75pm", "42", "tomorrow-ish"} {
		if got, ok := ToAbsolute(expr, time.Now()); ok {
			t.Fatalf("ToAbsolute(%q) unexpectedly resolved to %v", expr, got)
		}
	}
}

func TestInZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) // 14:00 in Berlin
	got, ok := InZone("4pm", "Europe/Berlin", now)
	if want := time.Date(2025, 6, 1, 16, 0, 0, 0, berlin); !ok || !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	got, ok = InZone("4pm", "Not/AZone", now)
	if want := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC); !ok || !got.Equal(want) {
		t.Fatalf("fallback: got %v want %v", got, want)
	}
}
