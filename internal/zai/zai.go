// Package zai reads the coding plan quota from the z.ai dashboard. The quota
// API is not called directly: a browser with an authenticated profile opens
// the subscription page and the response triggered by the Usage tab is
// captured.
package zai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"pkt.systems/ailimit/internal/browser"
	"pkt.systems/ailimit/internal/logx"
	"pkt.systems/ailimit/internal/resettime"
	"pkt.systems/ailimit/schema"
)

// Defaults for the z.ai dashboard.
const (
	DefaultTargetURL       = "https://z.ai/manage-apikey/subscription"
	DefaultAPIURLSubstring = "api.z.ai/api/monitor/usage/quota/limit"
	DefaultTriggerSelector = `[role="tab"]`
	DefaultTriggerText     = "Usage"
	DefaultTimeout         = 30 * time.Second
	DefaultSettle          = 3 * time.Second

	// TokensLimit is the limit type that decides the provider status.
	TokensLimit = "TOKENS_LIMIT"
)

// Config is built once per check and injected into the browser fetch.
type Config struct {
	UserDataDir     string
	OutputDir       string
	ChromePath      string
	Headless        bool
	TargetURL       string
	APIURLSubstring string
	TriggerSelector string
	TriggerText     string
	Timeout         time.Duration
	Settle          time.Duration
}

// DefaultConfig returns the dashboard defaults with no profile configured.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		TargetURL:       DefaultTargetURL,
		APIURLSubstring: DefaultAPIURLSubstring,
		TriggerSelector: DefaultTriggerSelector,
		TriggerText:     DefaultTriggerText,
		Timeout:         DefaultTimeout,
		Settle:          DefaultSettle,
	}
}

// UsageDetail is per-model consumption inside a limit.
type UsageDetail struct {
	ModelCode string  `json:"modelCode"`
	Usage     float64 `json:"usage"`
}

// Limit is one quota window.
type Limit struct {
	Type          string        `json:"type"`
	Unit          float64       `json:"unit"`
	Number        float64       `json:"number"`
	Usage         float64       `json:"usage"`
	CurrentValue  float64       `json:"currentValue"`
	Remaining     float64       `json:"remaining"`
	Percentage    float64       `json:"percentage"`
	NextResetTime int64         `json:"nextResetTime,omitempty"`
	UsageDetails  []UsageDetail `json:"usageDetails,omitempty"`
}

// Envelope is the API response wrapper.
type Envelope struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Success bool   `json:"success"`
	Data    struct {
		Limits []Limit `json:"limits"`
	} `json:"data"`
}

// Client fetches quota limits through a browser.
type Client struct {
	cfg      Config
	launcher browser.Launcher
}

// New returns a client. A nil launcher uses Chrome.
func New(cfg Config, launcher browser.Launcher) *Client {
	def := DefaultConfig()
	if cfg.TargetURL == "" {
		cfg.TargetURL = def.TargetURL
	}
	if cfg.APIURLSubstring == "" {
		cfg.APIURLSubstring = def.APIURLSubstring
	}
	if cfg.TriggerSelector == "" {
		cfg.TriggerSelector = def.TriggerSelector
	}
	if cfg.TriggerText == "" {
		cfg.TriggerText = def.TriggerText
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if launcher == nil {
		launcher = browser.ChromeLauncher{}
	}
	return &Client{cfg: cfg, launcher: launcher}
}

// ID implements core.Provider.
func (c *Client) ID() schema.ProviderID {
	return schema.ProviderZai
}

// Available checks that both browser directories are configured and exist.
func (c *Client) Available(context.Context) error {
	if c.cfg.UserDataDir == "" || c.cfg.OutputDir == "" {
		return fmt.Errorf("%w: Chrome environment variables (CHROME_OUTPUT_DIR, CHROME_USER_DATA_DIR) are not set", schema.ErrProviderUnavailable)
	}
	for _, dir := range []struct{ name, path string }{
		{"output-dir", c.cfg.OutputDir},
		{"user-data-dir", c.cfg.UserDataDir},
	} {
		info, err := os.Stat(dir.path)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: Chrome %s directory does not exist: %s", schema.ErrProviderUnavailable, dir.name, dir.path)
		}
	}
	return nil
}

// GetUsageQuota runs one browser fetch and returns the quota limits.
func (c *Client) GetUsageQuota(ctx context.Context) ([]Limit, error) {
	body, err := browser.FetchViaAPI(ctx, c.launcher, browser.Request{
		Name:            string(schema.ProviderZai),
		ProfileDir:      c.cfg.UserDataDir,
		OutputDir:       c.cfg.OutputDir,
		ChromePath:      c.cfg.ChromePath,
		Headless:        c.cfg.Headless,
		TargetURL:       c.cfg.TargetURL,
		TriggerSelector: c.cfg.TriggerSelector,
		TriggerText:     c.cfg.TriggerText,
		APIURLSubstring: c.cfg.APIURLSubstring,
		Timeout:         c.cfg.Timeout,
		Settle:          c.cfg.Settle,
	})
	if err != nil {
		return nil, err
	}
	limits, err := DecodeQuota(body)
	if err != nil {
		return nil, err
	}
	logx.Ctx(ctx).Debug("zai quota decoded", "limits", len(limits))
	return limits, nil
}

// Status implements core.Provider.
func (c *Client) Status(ctx context.Context, _ time.Time) (schema.Status, error) {
	limits, err := c.GetUsageQuota(ctx)
	if err != nil {
		return schema.Status{}, err
	}
	return StatusFrom(limits), nil
}

// DecodeQuota validates the envelope. Anything but success with code 200 is
// a hard failure.
func DecodeQuota(body []byte) ([]Limit, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode quota response: %w", err)
	}
	if !env.Success || env.Code != 200 {
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("code %d", env.Code)
		}
		return nil, fmt.Errorf("%w: z.ai: %s", schema.ErrAPIEnvelope, msg)
	}
	return env.Data.Limits, nil
}

// ErrLimitNotFound is returned by FindLimit when no limit has the requested type.
var ErrLimitNotFound = errors.New("limit type not found")

// FindLimit returns the first limit of the given type.
func FindLimit(limits []Limit, typ string) (Limit, error) {
	for _, l := range limits {
		if l.Type == typ {
			return l, nil
		}
	}
	return Limit{}, fmt.Errorf("%w: %s", ErrLimitNotFound, typ)
}

// StatusFrom maps the TOKENS_LIMIT window to a status: limited at 100%, reset
// at nextResetTime. Without that window the provider is available/Unknown.
func StatusFrom(limits []Limit) schema.Status {
	st := schema.UnknownStatus(schema.ProviderZai)
	tokens, err := FindLimit(limits, TokensLimit)
	if err != nil {
		return st
	}
	pct := tokens.Percentage
	st.UsedPercent = &pct
	if tokens.Percentage >= 100 {
		st.State = schema.StateRateLimited
	}
	if tokens.NextResetTime > 0 {
		st.ResetAt = tokens.NextResetTime
		st.ResetAtHuman = resettime.FromEpochMillis(tokens.NextResetTime).Format(time.RFC3339)
	}
	return st
}
