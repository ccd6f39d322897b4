package zai

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/ailimit/internal/browser"
	"pkt.systems/ailimit/schema"
)

const okBody = `{
  "code": 200,
  "msg": "Operation successful",
  "success": true,
  "data": {
    "limits": [
      {"type": "TIME_LIMIT", "unit": 5, "number": 1, "usage": 100, "currentValue": 3, "remaining": 97, "percentage": 3,
       "usageDetails": [{"modelCode": "search-prime", "usage": 3}]},
      {"type": "TOKENS_LIMIT", "unit": 3, "number": 5, "usage": 40000000, "currentValue": 40000000, "remaining": 0, "percentage": 100,
       "nextResetTime": 1767225600000}
    ]
  }
}`

func TestDecodeQuota(t *testing.T) {
	limits, err := DecodeQuota([]byte(okBody))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(limits) != 2 {
		t.Fatalf("expected 2 limits, got %d", len(limits))
	}
	if limits[0].UsageDetails[0].ModelCode != "search-prime" || limits[1].NextResetTime != 1767225600000 {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestDecodeQuotaErrorEnvelope(t *testing.T) {
	tests := map[string]string{
		"not success": `{"code":200,"msg":"denied","success":false,"data":{"limits":[]}}`,
		"bad code":    `{"code":401,"msg":"login required","success":true}`,
		"no msg":      `{"code":500,"success":false}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeQuota([]byte(body)); !errors.Is(err, schema.ErrAPIEnvelope) {
				t.Fatalf("expected ErrAPIEnvelope, got %v", err)
			}
		})
	}
	if _, err := DecodeQuota([]byte("<html>")); err == nil || errors.Is(err, schema.ErrAPIEnvelope) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestStatusFrom(t *testing.T) {
	limits, _ := DecodeQuota([]byte(okBody))
	st := StatusFrom(limits)
	if !st.Limited() || st.ResetAt != 1767225600000 || st.ResetAtHuman != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected status %+v", st)
	}

	limits[1].Percentage = 42
	limits[1].NextResetTime = 0
	st = StatusFrom(limits)
	if st.Limited() || st.ResetAt != 0 || st.ResetAtHuman != schema.Unknown || *st.UsedPercent != 42 {
		t.Fatalf("unexpected status %+v", st)
	}

	st = StatusFrom(limits[:1])
	if st.Limited() || st.ResetAtHuman != schema.Unknown || st.UsedPercent != nil {
		t.Fatalf("expected unknown status without TOKENS_LIMIT, got %+v", st)
	}
}

func TestAvailable(t *testing.T) {
	if err := New(Config{}, nil).Available(context.Background()); !errors.Is(err, schema.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable without dirs, got %v", err)
	}
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")
	if err := New(Config{UserDataDir: missing, OutputDir: dir}, nil).Available(context.Background()); !errors.Is(err, schema.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable with missing profile, got %v", err)
	}
	if err := New(Config{UserDataDir: dir, OutputDir: dir}, nil).Available(context.Background()); err != nil {
		t.Fatalf("expected available, got %v", err)
	}
}

type stubPage struct {
	fn   func(browser.Observed)
	body string
}

func (p *stubPage) OnResponse(fn func(browser.Observed)) { p.fn = fn }

func (p *stubPage) Navigate(context.Context, string) error { return nil }

func (p *stubPage) Click(_ context.Context, selector, text string, _ time.Duration) error {
	if selector != DefaultTriggerSelector || text != DefaultTriggerText {
		return errors.New("unexpected trigger")
	}
	p.fn(browser.Observed{
		URL:    "https://" + DefaultAPIURLSubstring + "?ts=1",
		Status: 200,
		Body:   func(context.Context) ([]byte, error) { return []byte(p.body), nil },
	})
	return nil
}

func (p *stubPage) Screenshot(context.Context) ([]byte, error) { return nil, errors.ErrUnsupported }

func (p *stubPage) Close() error { return nil }

type stubLauncher struct {
	page    *stubPage
	profile string
}

func (l *stubLauncher) Launch(_ context.Context, opts browser.LaunchOptions) (browser.Page, error) {
	l.profile = opts.ProfileDir
	return l.page, nil
}

func TestStatusThroughBrowser(t *testing.T) {
	dir := t.TempDir()
	launcher := &stubLauncher{page: &stubPage{body: okBody}}
	c := New(Config{UserDataDir: dir, OutputDir: dir, Settle: time.Millisecond}, launcher)
	st, err := c.Status(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Limited() || st.Provider != schema.ProviderZai {
		t.Fatalf("unexpected status %+v", st)
	}
	if launcher.profile != dir {
		t.Fatalf("expected profile dir passed to launcher, got %q", launcher.profile)
	}
}

func TestStatusThroughBrowserErrorEnvelope(t *testing.T) {
	dir := t.TempDir()
	launcher := &stubLauncher{page: &stubPage{body: `{"code":401,"msg":"expired","success":false}`}}
	c := New(Config{UserDataDir: dir, OutputDir: dir, Settle: time.Millisecond}, launcher)
	if _, err := c.Status(context.Background(), time.Now()); !errors.Is(err, schema.ErrAPIEnvelope) {
		t.Fatalf("expected ErrAPIEnvelope, got %v", err)
	}
}
