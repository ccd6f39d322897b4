package appconfig

import (
	"time"

	"pkt.systems/ailimit/internal/browser"
	"pkt.systems/ailimit/internal/claude"
	"pkt.systems/ailimit/internal/gemini"
	"pkt.systems/ailimit/internal/zai"
	"pkt.systems/ailimit/schema"
)

// ClaudeConfig builds the claude client settings.
func (c Config) ClaudeConfig() claude.Config {
	timings := claude.DefaultTimings()
	if c.Claude.ReadyTimeoutSeconds > 0 {
		timings.Ready = seconds(c.Claude.ReadyTimeoutSeconds)
	}
	if c.Claude.ResultTimeoutSeconds > 0 {
		timings.Result = seconds(c.Claude.ResultTimeoutSeconds)
	}
	return claude.Config{
		Binary:       c.Claude.Binary,
		Args:         c.Claude.Args,
		Cols:         uint16(c.Claude.Cols),
		Rows:         uint16(c.Claude.Rows),
		PollInterval: time.Duration(c.Claude.PollIntervalMS) * time.Millisecond,
		Timings:      timings,
		DumpDir:      c.Debug.DumpDir,
	}
}

// GeminiConfig builds the gemini client settings.
func (c Config) GeminiConfig() gemini.Config {
	timings := gemini.DefaultTimings()
	if c.Gemini.ReadyTimeoutSeconds > 0 {
		timings.Ready = seconds(c.Gemini.ReadyTimeoutSeconds)
	}
	if c.Gemini.ResultTimeoutSeconds > 0 {
		timings.Stats = seconds(c.Gemini.ResultTimeoutSeconds)
	}
	return gemini.Config{
		Binary:       c.Gemini.Binary,
		Args:         c.Gemini.Args,
		Cols:         uint16(c.Gemini.Cols),
		Rows:         uint16(c.Gemini.Rows),
		PollInterval: time.Duration(c.Gemini.PollIntervalMS) * time.Millisecond,
		Timings:      timings,
		Threshold:    c.Gemini.LimitThresholdPercent,
		DumpDir:      c.Debug.DumpDir,
	}
}

// ZaiConfig builds the browser settings for one z.ai check.
func (c Config) ZaiConfig() zai.Config {
	return zai.Config{
		UserDataDir:     c.Zai.UserDataDir,
		OutputDir:       c.Zai.OutputDir,
		ChromePath:      c.Zai.ChromePath,
		Headless:        c.Zai.Headless,
		TargetURL:       c.Zai.TargetURL,
		APIURLSubstring: c.Zai.APIURLSubstring,
		TriggerSelector: c.Zai.TriggerSelector,
		TriggerText:     c.Zai.TriggerText,
		Timeout:         seconds(c.Zai.TimeoutSeconds),
		Settle:          time.Duration(c.Zai.SettleMS) * time.Millisecond,
	}
}

// ServiceConfig builds the aggregation defaults.
func (c Config) ServiceConfig() (schema.ServiceConfig, error) {
	var providers []schema.ProviderID
	if len(c.Providers) > 0 {
		normalized, err := schema.NormalizeProviders(c.Providers)
		if err != nil {
			return schema.ServiceConfig{}, err
		}
		providers = normalized
	}
	return schema.ServiceConfig{DefaultProviders: providers}, nil
}

// ProviderClients builds every provider client. A nil launcher drives Chrome.
func (c Config) ProviderClients(launcher browser.Launcher) (*claude.Client, *gemini.Client, *zai.Client) {
	return claude.New(c.ClaudeConfig()), gemini.New(c.GeminiConfig()), zai.New(c.ZaiConfig(), launcher)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
