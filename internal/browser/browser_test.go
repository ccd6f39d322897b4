package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"pkt.systems/ailimit/internal/metrics"
	"pkt.systems/ailimit/schema"
)

const apiSubstring = "api.example.test/quota/limit"

// fakePage replays canned responses at chosen moments of the page lifecycle.
type fakePage struct {
	mu       sync.Mutex
	handlers []func(Observed)

	onNavigate []Observed
	onClick    []Observed
	navErr     error
	clickErr   error
	clickDelay time.Duration

	navigated  bool
	clicked    bool
	closed     bool
	screenshot []byte
}

func (p *fakePage) OnResponse(fn func(Observed)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, fn)
	p.mu.Unlock()
}

func (p *fakePage) fire(list []Observed) {
	p.mu.Lock()
	handlers := slices.Clone(p.handlers)
	p.mu.Unlock()
	for _, o := range list {
		for _, fn := range handlers {
			fn(o)
		}
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = true
	p.fire(p.onNavigate)
	return p.navErr
}

func (p *fakePage) Click(ctx context.Context, selector, text string, timeout time.Duration) error {
	if p.clickDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.clickDelay):
		}
	}
	p.clicked = true
	if p.clickErr != nil {
		return p.clickErr
	}
	go p.fire(p.onClick)
	return nil
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	if p.screenshot == nil {
		return nil, errors.ErrUnsupported
	}
	return p.screenshot, nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeLauncher struct {
	page *fakePage
	err  error
	opts LaunchOptions
}

func (l *fakeLauncher) Launch(_ context.Context, opts LaunchOptions) (Page, error) {
	l.opts = opts
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

func response(url, body string) Observed {
	return Observed{
		URL:    url,
		Status: 200,
		Body: func(context.Context) ([]byte, error) {
			return []byte(body), nil
		},
	}
}

func testRequest() Request {
	return Request{
		Name:            "test",
		ProfileDir:      "/profile",
		TargetURL:       "https://example.test/subscription",
		TriggerSelector: `[role="tab"]`,
		TriggerText:     "Usage",
		APIURLSubstring: apiSubstring,
		Timeout:         2 * time.Second,
		Settle:          time.Millisecond,
		ClickTimeout:    time.Second,
		Headless:        true,
	}
}

func TestFetchCapturesResponseAfterClick(t *testing.T) {
	page := &fakePage{onClick: []Observed{
		response("https://api.example.test/other", `{"ignored":true}`),
		response("https://"+apiSubstring+"?x=1", `{"first":true}`),
		response("https://"+apiSubstring+"?x=2", `{"second":true}`),
	}}
	launcher := &fakeLauncher{page: page}
	before := testutil.ToFloat64(metrics.ResponseRaceTotal.WithLabelValues(metrics.RaceMatched))

	body, err := FetchViaAPI(context.Background(), launcher, testRequest())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != `{"first":true}` {
		t.Fatalf("expected first matching response, got %s", body)
	}
	if !page.clicked || !page.closed {
		t.Fatalf("expected click and close, got clicked=%v closed=%v", page.clicked, page.closed)
	}
	if launcher.opts.ProfileDir != "/profile" || !launcher.opts.Headless {
		t.Fatalf("unexpected launch options %+v", launcher.opts)
	}
	if after := testutil.ToFloat64(metrics.ResponseRaceTotal.WithLabelValues(metrics.RaceMatched)); after != before+1 {
		t.Fatalf("expected matched race metric, got %f -> %f", before, after)
	}
}

func TestFetchCapturesResponseFiredDuringNavigation(t *testing.T) {
	// The response arrives synchronously inside Navigate; a listener installed
	// after navigation would miss it.
	page := &fakePage{onNavigate: []Observed{response("https://"+apiSubstring, `{"early":true}`)}}
	body, err := FetchViaAPI(context.Background(), &fakeLauncher{page: page}, testRequest())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != `{"early":true}` {
		t.Fatalf("unexpected body %s", body)
	}
	if page.clicked {
		t.Fatalf("click is unnecessary once the response was captured")
	}
	if !page.closed {
		t.Fatalf("expected page closed")
	}
}

func TestFetchTimeoutWritesScreenshot(t *testing.T) {
	out := t.TempDir()
	page := &fakePage{
		onClick:    []Observed{response("https://api.example.test/unrelated", "{}")},
		screenshot: []byte("png"),
	}
	req := testRequest()
	req.Timeout = 100 * time.Millisecond
	req.OutputDir = out

	_, err := FetchViaAPI(context.Background(), &fakeLauncher{page: page}, req)
	if !errors.Is(err, schema.ErrResponseTimeout) {
		t.Fatalf("expected ErrResponseTimeout, got %v", err)
	}
	if !page.closed {
		t.Fatalf("expected page closed on timeout")
	}
	matches, _ := filepath.Glob(filepath.Join(out, "test-failure-*.png"))
	if len(matches) != 1 {
		t.Fatalf("expected one failure screenshot, got %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	if string(data) != "png" {
		t.Fatalf("unexpected screenshot content %q", data)
	}
}

func TestFetchTimeoutCoversSlowClick(t *testing.T) {
	page := &fakePage{clickDelay: time.Minute}
	req := testRequest()
	req.Timeout = 100 * time.Millisecond
	start := time.Now()
	_, err := FetchViaAPI(context.Background(), &fakeLauncher{page: page}, req)
	if !errors.Is(err, schema.ErrResponseTimeout) {
		t.Fatalf("expected ErrResponseTimeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("race deadline did not bound the click")
	}
}

func TestFetchClickFailureIsHard(t *testing.T) {
	page := &fakePage{clickErr: errors.New("no such element")}
	_, err := FetchViaAPI(context.Background(), &fakeLauncher{page: page}, testRequest())
	if err == nil || !strings.Contains(err.Error(), "find or click") {
		t.Fatalf("expected click error, got %v", err)
	}
	if errors.Is(err, schema.ErrResponseTimeout) {
		t.Fatalf("click failure should not be reported as timeout")
	}
	if !page.closed {
		t.Fatalf("expected page closed")
	}
}

func TestFetchNavigationFailureAfterMatchStillSucceeds(t *testing.T) {
	page := &fakePage{
		onNavigate: []Observed{response("https://"+apiSubstring, `{"ok":1}`)},
		navErr:     errors.New("net::ERR_ABORTED"),
	}
	body, err := FetchViaAPI(context.Background(), &fakeLauncher{page: page}, testRequest())
	if err != nil || string(body) != `{"ok":1}` {
		t.Fatalf("expected captured body despite navigation error, got %s %v", body, err)
	}
}

func TestFetchLaunchFailure(t *testing.T) {
	_, err := FetchViaAPI(context.Background(), &fakeLauncher{err: errors.New("no chrome")}, testRequest())
	if err == nil || !strings.Contains(err.Error(), "launch browser") {
		t.Fatalf("expected launch error, got %v", err)
	}
}

func TestFetchRequiresTarget(t *testing.T) {
	_, err := FetchViaAPI(context.Background(), &fakeLauncher{page: &fakePage{}}, Request{})
	if !errors.Is(err, schema.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestFetchCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &fakePage{}
	_, err := FetchViaAPI(ctx, &fakeLauncher{page: page}, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !page.closed {
		t.Fatalf("expected page closed")
	}
}

func TestRaceResolvesOnce(t *testing.T) {
	r := newRace("needle")
	if r.resolved() {
		t.Fatalf("fresh race must not be resolved")
	}
	r.observe(Observed{URL: "https://haystack"})
	if r.resolved() {
		t.Fatalf("non-matching response resolved the race")
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.observe(Observed{URL: "https://needle/" + string(rune('a'+i))})
		}()
	}
	wg.Wait()
	if !r.resolved() || !strings.HasPrefix(r.hit.URL, "https://needle/") {
		t.Fatalf("unexpected race state %+v", r.hit)
	}
}
