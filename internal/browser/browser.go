// Package browser loads a page in a persistent browser profile, triggers a UI
// action and captures the body of the first network response whose URL
// contains a known substring.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pkt.systems/ailimit/internal/metrics"
	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultSettle       = 3 * time.Second
	defaultClickTimeout = 10 * time.Second
)

// Observed is a finished network response seen by a Page.
type Observed struct {
	URL    string
	Status int64
	// Body fetches the response body. It may only be called outside the
	// OnResponse callback.
	Body func(ctx context.Context) ([]byte, error)
}

// Page is one browser tab.
type Page interface {
	// OnResponse registers fn for every finished response. fn must not block.
	OnResponse(fn func(Observed))
	// Navigate loads url and returns once the page fired its load event.
	Navigate(ctx context.Context, url string) error
	// Click waits up to timeout for the first element matching selector whose
	// text contains text (any text when empty) to become interactive, and
	// clicks it.
	Click(ctx context.Context, selector, text string, timeout time.Duration) error
	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// LaunchOptions selects the browser and profile.
type LaunchOptions struct {
	ProfileDir string
	ChromePath string
	Headless   bool
}

// Launcher opens pages.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Page, error)
}

// Request describes one fetch through the browser.
type Request struct {
	// Name prefixes failure screenshots.
	Name            string
	ProfileDir      string
	OutputDir       string
	ChromePath      string
	Headless        bool
	TargetURL       string
	TriggerSelector string
	TriggerText     string
	APIURLSubstring string
	// Timeout bounds the response race; it starts when the listener is installed.
	Timeout time.Duration
	// Settle is the fixed delay after load for client-side rendering;
	// negative disables it.
	Settle       time.Duration
	ClickTimeout time.Duration
}

func (r Request) withDefaults() Request {
	if r.Timeout <= 0 {
		r.Timeout = defaultTimeout
	}
	if r.Settle == 0 {
		r.Settle = defaultSettle
	}
	if r.ClickTimeout <= 0 {
		r.ClickTimeout = defaultClickTimeout
	}
	if r.Name == "" {
		r.Name = "browser"
	}
	return r
}

// race resolves once, with the first observed response matching substr.
type race struct {
	substr string
	once   sync.Once
	done   chan struct{}
	hit    Observed
}

func newRace(substr string) *race {
	return &race{substr: substr, done: make(chan struct{})}
}

func (r *race) observe(o Observed) {
	if !strings.Contains(o.URL, r.substr) {
		return
	}
	r.once.Do(func() {
		r.hit = o
		close(r.done)
	})
}

func (r *race) resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// FetchViaAPI opens a page, installs the response listener, navigates, waits
// for the settle delay, clicks the trigger and returns the body of the first
// response whose URL contains req.APIURLSubstring. The page is closed on
// every path. No match within req.Timeout is schema.ErrResponseTimeout.
func FetchViaAPI(ctx context.Context, launcher Launcher, req Request) ([]byte, error) {
	req = req.withDefaults()
	if req.APIURLSubstring == "" || req.TargetURL == "" {
		return nil, fmt.Errorf("%w: target url and api url substring are required", schema.ErrConfigMissing)
	}
	log := pslog.Ctx(ctx)

	page, err := launcher.Launch(ctx, LaunchOptions{
		ProfileDir: req.ProfileDir,
		ChromePath: req.ChromePath,
		Headless:   req.Headless,
	})
	if err != nil {
		metrics.ObserveRace(metrics.RaceError)
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug("browser close failed", "err", err)
		}
	}()

	r := newRace(req.APIURLSubstring)
	page.OnResponse(r.observe)
	raceCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	// fail classifies an interrupted step: the caller's ctx ending is returned
	// as is, the race deadline becomes schema.ErrResponseTimeout.
	fail := func(step string, err error) error {
		if ctx.Err() != nil {
			metrics.ObserveRace(metrics.RaceError)
			return ctx.Err()
		}
		if raceCtx.Err() != nil {
			metrics.ObserveRace(metrics.RaceTimeout)
			saveFailure(ctx, page, req)
			return fmt.Errorf("%w: no response matching %q within %s", schema.ErrResponseTimeout, req.APIURLSubstring, req.Timeout)
		}
		metrics.ObserveRace(metrics.RaceError)
		saveFailure(ctx, page, req)
		return fmt.Errorf("%s: %w", step, err)
	}

	started := time.Now()
	if err := page.Navigate(raceCtx, req.TargetURL); err != nil && !r.resolved() {
		return nil, fail("navigate "+req.TargetURL, err)
	}
	log.Debug("browser page loaded", "url", req.TargetURL, "elapsed_ms", time.Since(started).Milliseconds(), "matched", r.resolved())

	if !r.resolved() {
		if !sleep(raceCtx, req.Settle) {
			return nil, fail("settle", raceCtx.Err())
		}
		if req.TriggerSelector != "" {
			err := page.Click(raceCtx, req.TriggerSelector, req.TriggerText, req.ClickTimeout)
			if err != nil && !r.resolved() {
				return nil, fail(fmt.Sprintf("find or click %s %q", req.TriggerSelector, req.TriggerText), err)
			}
		}
	}

	select {
	case <-r.done:
	case <-raceCtx.Done():
		return nil, fail("wait for response", raceCtx.Err())
	}

	body, err := r.hit.Body(ctx)
	if err != nil {
		metrics.ObserveRace(metrics.RaceError)
		return nil, fmt.Errorf("read response body %s: %w", r.hit.URL, err)
	}
	metrics.ObserveRace(metrics.RaceMatched)
	log.Debug("browser response captured", "url", r.hit.URL, "status", r.hit.Status, "bytes", len(body), "elapsed_ms", time.Since(started).Milliseconds())
	return body, nil
}

// saveFailure writes a screenshot to the output directory for diagnosis.
func saveFailure(ctx context.Context, page Page, req Request) {
	if req.OutputDir == "" {
		return
	}
	log := pslog.Ctx(ctx)
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	png, err := page.Screenshot(shotCtx)
	if err != nil {
		if !errors.Is(err, errors.ErrUnsupported) {
			log.Debug("browser failure screenshot failed", "err", err)
		}
		return
	}
	path := filepath.Join(req.OutputDir, fmt.Sprintf("%s-failure-%d.png", req.Name, time.Now().Unix()))
	if err := os.WriteFile(path, png, 0o600); err != nil {
		log.Warn("browser failure screenshot not written", "path", path, "err", err)
		return
	}
	log.Info("browser failure screenshot written", "path", path)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
