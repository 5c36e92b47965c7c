package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrMissingWebhook is returned by Validate when no endpoint is configured.
var ErrMissingWebhook = eris.New("config: notify.webhook_url is required")

// Config holds the full application configuration.
type Config struct {
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Scan   ScanConfig   `yaml:"scan" mapstructure:"scan"`
	Notify NotifyConfig `yaml:"notify" mapstructure:"notify"`
	Status StatusConfig `yaml:"status" mapstructure:"status"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// WatchConfig configures the live file watchers.
type WatchConfig struct {
	Paths           []string `yaml:"paths" mapstructure:"paths"`
	DebounceMs      int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	AwaitIntervalMs int      `yaml:"await_interval_ms" mapstructure:"await_interval_ms"`
	AwaitAttempts   int      `yaml:"await_attempts" mapstructure:"await_attempts"`
}

// ScanConfig configures the directory-scan comparison.
type ScanConfig struct {
	Dir      string   `yaml:"dir" mapstructure:"dir"`
	Prefix   string   `yaml:"prefix" mapstructure:"prefix"`
	Columns  []string `yaml:"columns" mapstructure:"columns"`
	Schedule string   `yaml:"schedule" mapstructure:"schedule"`
}

// NotifyConfig configures webhook delivery.
type NotifyConfig struct {
	WebhookURL    string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Format        string `yaml:"format" mapstructure:"format"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	CardTitle     string `yaml:"card_title" mapstructure:"card_title"`
}

// StatusConfig configures the optional status endpoint.
type StatusConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// legacyEnv maps config keys to unprefixed variable names that are still
// accepted. The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"watch.paths":        "CSV_PATH",
	"watch.debounce_ms":  "POLL_INTERVAL_MS",
	"notify.webhook_url": "WEBHOOK_URL",
	"scan.dir":           "TARGET_DIR",
}

// Load reads configuration from config.yaml, environment, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "ADMWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", legacy)
		}
	}

	// Defaults
	v.SetDefault("watch.paths", []string{"kopo_admission.csv"})
	v.SetDefault("watch.debounce_ms", 2000)
	v.SetDefault("watch.await_interval_ms", 3000)
	v.SetDefault("watch.await_attempts", 0)
	v.SetDefault("scan.dir", ".")
	v.SetDefault("scan.prefix", "kopo_admission")
	v.SetDefault("scan.columns", []string{"접수인원"})
	v.SetDefault("scan.schedule", "")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.format", "raw")
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("notify.rate_per_minute", 0)
	v.SetDefault("notify.card_title", "접수인원 변동 알림")
	v.SetDefault("status.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Watch.Paths = splitList(cfg.Watch.Paths)
	cfg.Scan.Columns = splitList(cfg.Scan.Columns)

	return &cfg, nil
}

// splitList flattens comma-separated entries and drops blanks, so a single
// env value like "a.csv,b.csv" yields two paths.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks the settings a command needs before it starts. mode is
// "watch" or "compare".
func (c *Config) Validate(mode string) error {
	if strings.TrimSpace(c.Notify.WebhookURL) == "" {
		return ErrMissingWebhook
	}

	var errs []string
	switch c.Notify.Format {
	case "raw", "card":
	default:
		errs = append(errs, "notify.format must be raw or card")
	}
	if c.Notify.TimeoutSecs <= 0 {
		errs = append(errs, "notify.timeout_secs must be > 0")
	}
	if c.Notify.RatePerMinute < 0 {
		errs = append(errs, "notify.rate_per_minute must be >= 0")
	}

	switch mode {
	case "watch":
		if len(c.Watch.Paths) == 0 {
			errs = append(errs, "watch.paths is required")
		}
		if c.Watch.DebounceMs <= 0 {
			errs = append(errs, "watch.debounce_ms must be > 0")
		}
		if c.Watch.AwaitIntervalMs <= 0 {
			errs = append(errs, "watch.await_interval_ms must be > 0")
		}
	case "compare":
		if c.Scan.Dir == "" {
			errs = append(errs, "scan.dir is required")
		}
		if c.Scan.Prefix == "" {
			errs = append(errs, "scan.prefix is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Redacted returns a copy safe to print, with the webhook URL masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Notify.WebhookURL != "" {
		out.Notify.WebhookURL = "<redacted>"
	}
	out.Watch.Paths = append([]string(nil), c.Watch.Paths...)
	out.Scan.Columns = append([]string(nil), c.Scan.Columns...)
	return out
}

// InitLogger initializes the global zap logger from config. When File is set
// the log stream is also written to a size-rotated file.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	var opts []zap.Option
	if cfg.File != "" {
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), fileSink, zapCfg.Level)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
