package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const clickPollInterval = 100 * time.Millisecond

// ChromeLauncher starts Chrome through chromedp with a persistent profile.
type ChromeLauncher struct{}

// Launch implements Launcher. The browser lives until the page is closed or
// ctx ends.
func (ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	p := &chromePage{
		ctx:      tabCtx,
		pending:  map[network.RequestID]pendingResponse{},
		closeTab: cancelTab,
		closeAll: cancelAlloc,
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return p, nil
}

type pendingResponse struct {
	url    string
	status int64
}

type chromePage struct {
	ctx context.Context

	mu       sync.Mutex
	handlers []func(Observed)
	pending  map[network.RequestID]pendingResponse

	closeOnce sync.Once
	closeTab  context.CancelFunc
	closeAll  context.CancelFunc
}

func (p *chromePage) OnResponse(fn func(Observed)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, fn)
	p.mu.Unlock()
}

// onEvent runs on the chromedp event goroutine; it must not issue commands.
// A response is reported when its body finished loading, so Body can fetch it.
func (p *chromePage) onEvent(ev any) {
	switch ev := ev.(type) {
	case *network.EventResponseReceived:
		if ev.Response == nil {
			return
		}
		p.mu.Lock()
		p.pending[ev.RequestID] = pendingResponse{url: ev.Response.URL, status: ev.Response.Status}
		p.mu.Unlock()
	case *network.EventLoadingFailed:
		p.mu.Lock()
		delete(p.pending, ev.RequestID)
		p.mu.Unlock()
	case *network.EventLoadingFinished:
		p.mu.Lock()
		resp, ok := p.pending[ev.RequestID]
		delete(p.pending, ev.RequestID)
		handlers := slices.Clone(p.handlers)
		p.mu.Unlock()
		if !ok {
			return
		}
		id := ev.RequestID
		obs := Observed{
			URL:    resp.url,
			Status: resp.status,
			Body: func(ctx context.Context) ([]byte, error) {
				var body []byte
				err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
					b, err := network.GetResponseBody(id).Do(ctx)
					body = b
					return err
				}))
				return body, err
			},
		}
		for _, fn := range handlers {
			fn(obs)
		}
	}
}

// run executes actions on the tab, bounded by the caller's ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

type clickProbe struct {
	State string  `json:"state"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

const clickProbeJS = `(() => {
	const selector = %s, text = %s;
	const el = Array.from(document.querySelectorAll(selector))
		.find(e => text === "" || (e.textContent || "").includes(text));
	if (!el) return {state: "missing", x: 0, y: 0};
	if (el.disabled || el.getAttribute("aria-disabled") === "true") return {state: "disabled", x: 0, y: 0};
	el.scrollIntoView({block: "center", inline: "center"});
	const r = el.getBoundingClientRect();
	if (r.width === 0 || r.height === 0) return {state: "hidden", x: 0, y: 0};
	return {state: "ready", x: r.left + r.width / 2, y: r.top + r.height / 2};
})()`

// Click polls for the element the way a user would wait for it, then clicks
// its center with real mouse events so pointer-driven widgets react too.
func (p *chromePage) Click(ctx context.Context, selector, text string, timeout time.Duration) error {
	sel, _ := json.Marshal(selector)
	txt, _ := json.Marshal(text)
	js := fmt.Sprintf(clickProbeJS, sel, txt)

	deadline := time.Now().Add(timeout)
	last := "missing"
	for {
		var probe clickProbe
		if err := p.run(ctx, chromedp.Evaluate(js, &probe)); err == nil {
			last = probe.State
			if probe.State == "ready" {
				return p.run(ctx, chromedp.MouseClickXY(probe.X, probe.Y))
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for %s with text %q (last=%s)", selector, text, last)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(clickPollInterval):
		}
	}
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = chromedp.Cancel(p.ctx)
		p.closeTab()
		p.closeAll()
	})
	return err
}
