package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/ailimit/internal/gemini"
	"pkt.systems/ailimit/internal/zai"
	"pkt.systems/ailimit/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int          `mapstructure:"config_version" yaml:"config_version"`
	Providers     []string     `mapstructure:"providers" yaml:"providers"`
	Claude        CLIConfig    `mapstructure:"claude" yaml:"claude"`
	Gemini        GeminiConfig `mapstructure:"gemini" yaml:"gemini"`
	Zai           ZaiConfig    `mapstructure:"zai" yaml:"zai"`
	HTTP          HTTPConfig   `mapstructure:"http" yaml:"http"`
	Debug         DebugConfig  `mapstructure:"debug" yaml:"debug"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// CLIConfig configures a provider driven through its interactive CLI.
type CLIConfig struct {
	Binary               string   `mapstructure:"binary" yaml:"binary"`
	Args                 []string `mapstructure:"args" yaml:"args"`
	Cols                 int      `mapstructure:"cols" yaml:"cols"`
	Rows                 int      `mapstructure:"rows" yaml:"rows"`
	PollIntervalMS       int      `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	ReadyTimeoutSeconds  int      `mapstructure:"ready_timeout_seconds" yaml:"ready_timeout_seconds"`
	ResultTimeoutSeconds int      `mapstructure:"result_timeout_seconds" yaml:"result_timeout_seconds"`
}

// GeminiConfig adds the rate-limit cutoff to the CLI settings.
type GeminiConfig struct {
	CLIConfig             `mapstructure:",squash" yaml:",inline"`
	LimitThresholdPercent float64 `mapstructure:"limit_threshold_percent" yaml:"limit_threshold_percent"`
}

// ZaiConfig configures the browser used for the z.ai dashboard.
type ZaiConfig struct {
	UserDataDir     string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	ChromePath      string `mapstructure:"chrome_path" yaml:"chrome_path"`
	Headless        bool   `mapstructure:"headless" yaml:"headless"`
	TargetURL       string `mapstructure:"target_url" yaml:"target_url"`
	APIURLSubstring string `mapstructure:"api_url_substring" yaml:"api_url_substring"`
	TriggerSelector string `mapstructure:"trigger_selector" yaml:"trigger_selector"`
	TriggerText     string `mapstructure:"trigger_text" yaml:"trigger_text"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	SettleMS        int    `mapstructure:"settle_ms" yaml:"settle_ms"`
}

// HTTPConfig configures `ailimit serve`.
type HTTPConfig struct {
	Addr                string `mapstructure:"addr" yaml:"addr"`
	CheckTimeoutSeconds int    `mapstructure:"check_timeout_seconds" yaml:"check_timeout_seconds"`
}

// DebugConfig controls diagnostic output.
type DebugConfig struct {
	// DumpDir receives raw and cleaned terminal captures; empty disables dumps.
	DumpDir string `mapstructure:"dump_dir" yaml:"dump_dir"`
}

// Environment variables that override the browser settings.
const (
	EnvChromeUserDataDir = "CHROME_USER_DATA_DIR"
	EnvChromeOutputDir   = "CHROME_OUTPUT_DIR"
	EnvChromePath        = "AILIMIT_CHROME_PATH"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	providers := make([]string, 0, len(schema.AllProviders))
	for _, id := range schema.AllProviders {
		providers = append(providers, string(id))
	}
	zaiDefaults := zai.DefaultConfig()
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Providers:     providers,
		Claude: CLIConfig{
			Binary:               "claude",
			Args:                 []string{},
			Cols:                 120,
			Rows:                 40,
			PollIntervalMS:       500,
			ReadyTimeoutSeconds:  15,
			ResultTimeoutSeconds: 10,
		},
		Gemini: GeminiConfig{
			CLIConfig: CLIConfig{
				Binary:               "gemini",
				Args:                 []string{"--yolo"},
				Cols:                 120,
				Rows:                 40,
				PollIntervalMS:       500,
				ReadyTimeoutSeconds:  15,
				ResultTimeoutSeconds: 10,
			},
			LimitThresholdPercent: gemini.DefaultThreshold,
		},
		Zai: ZaiConfig{
			UserDataDir:     "",
			OutputDir:       "",
			ChromePath:      "",
			Headless:        zaiDefaults.Headless,
			TargetURL:       zaiDefaults.TargetURL,
			APIURLSubstring: zaiDefaults.APIURLSubstring,
			TriggerSelector: zaiDefaults.TriggerSelector,
			TriggerText:     zaiDefaults.TriggerText,
			TimeoutSeconds:  int(zaiDefaults.Timeout.Seconds()),
			SettleMS:        int(zaiDefaults.Settle.Milliseconds()),
		},
		HTTP: HTTPConfig{
			Addr:                "127.0.0.1:27490",
			CheckTimeoutSeconds: 120,
		},
		Debug: DebugConfig{
			DumpDir: "",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ailimit", "config.yaml"), nil
}
