package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/ailimit/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults; the browser environment variables
// override the file either way.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("providers", cfg.Providers)
	setCLIDefaults(v, "claude", cfg.Claude)
	setCLIDefaults(v, "gemini", cfg.Gemini.CLIConfig)
	v.SetDefault("gemini.limit_threshold_percent", cfg.Gemini.LimitThresholdPercent)
	v.SetDefault("zai.user_data_dir", cfg.Zai.UserDataDir)
	v.SetDefault("zai.output_dir", cfg.Zai.OutputDir)
	v.SetDefault("zai.chrome_path", cfg.Zai.ChromePath)
	v.SetDefault("zai.headless", cfg.Zai.Headless)
	v.SetDefault("zai.target_url", cfg.Zai.TargetURL)
	v.SetDefault("zai.api_url_substring", cfg.Zai.APIURLSubstring)
	v.SetDefault("zai.trigger_selector", cfg.Zai.TriggerSelector)
	v.SetDefault("zai.trigger_text", cfg.Zai.TriggerText)
	v.SetDefault("zai.timeout_seconds", cfg.Zai.TimeoutSeconds)
	v.SetDefault("zai.settle_ms", cfg.Zai.SettleMS)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.check_timeout_seconds", cfg.HTTP.CheckTimeoutSeconds)
	v.SetDefault("debug.dump_dir", cfg.Debug.DumpDir)

	for key, env := range map[string]string{
		"zai.user_data_dir": EnvChromeUserDataDir,
		"zai.output_dir":    EnvChromeOutputDir,
		"zai.chrome_path":   EnvChromePath,
	} {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setCLIDefaults(v *viper.Viper, prefix string, cfg CLIConfig) {
	v.SetDefault(prefix+".binary", cfg.Binary)
	v.SetDefault(prefix+".args", cfg.Args)
	v.SetDefault(prefix+".cols", cfg.Cols)
	v.SetDefault(prefix+".rows", cfg.Rows)
	v.SetDefault(prefix+".poll_interval_ms", cfg.PollIntervalMS)
	v.SetDefault(prefix+".ready_timeout_seconds", cfg.ReadyTimeoutSeconds)
	v.SetDefault(prefix+".result_timeout_seconds", cfg.ResultTimeoutSeconds)
}

func validate(cfg Config) error {
	if _, err := schema.NormalizeProviders(cfg.Providers); err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	for name, cli := range map[string]CLIConfig{"claude": cfg.Claude, "gemini": cfg.Gemini.CLIConfig} {
		if strings.TrimSpace(cli.Binary) == "" {
			return fmt.Errorf("%s.binary must not be empty", name)
		}
		if cli.Cols < 0 || cli.Cols > 1000 || cli.Rows < 0 || cli.Rows > 1000 {
			return fmt.Errorf("%s terminal size %dx%d is out of range", name, cli.Cols, cli.Rows)
		}
		if cli.ReadyTimeoutSeconds < 0 || cli.ResultTimeoutSeconds < 0 || cli.PollIntervalMS < 0 {
			return fmt.Errorf("%s timeouts must not be negative", name)
		}
	}
	if t := cfg.Gemini.LimitThresholdPercent; t < 0 || t > 100 {
		return fmt.Errorf("gemini.limit_threshold_percent must be between 0 and 100, got %v", t)
	}
	if cfg.Zai.TargetURL != "" {
		parsed, err := url.Parse(cfg.Zai.TargetURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("zai.target_url must include scheme and host (e.g. https://z.ai/manage-apikey/subscription)")
		}
	}
	if cfg.Zai.TimeoutSeconds < 0 || cfg.HTTP.CheckTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Claude.Binary = expandEnv(cfg.Claude.Binary)
	cfg.Gemini.Binary = expandEnv(cfg.Gemini.Binary)
	cfg.Zai.UserDataDir = expandEnv(cfg.Zai.UserDataDir)
	cfg.Zai.OutputDir = expandEnv(cfg.Zai.OutputDir)
	cfg.Zai.ChromePath = expandEnv(cfg.Zai.ChromePath)
	cfg.Debug.DumpDir = expandEnv(cfg.Debug.DumpDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
