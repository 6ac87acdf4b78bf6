// Package config loads threatfeed settings from defaults, a config file,
// THREATFEED_* environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. THREATFEED_NVD_API_KEY
const EnvPrefix = "THREATFEED"

// DefaultConfigName is looked up in the working directory when --config is not set
const DefaultConfigName = "threatfeed"

// Config holds every tunable of a run
type Config struct {
	Count     int           `mapstructure:"count"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	Readme    string        `mapstructure:"readme"`
	Strict    bool          `mapstructure:"strict"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
	UserAgent string        `mapstructure:"user_agent"`

	NVD     NVDConfig     `mapstructure:"nvd"`
	HIBP    HIBPConfig    `mapstructure:"hibp"`
	Render  RenderConfig  `mapstructure:"render"`
	Markers MarkersConfig `mapstructure:"markers"`
	Sign    SignConfig    `mapstructure:"sign"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// NVDConfig configures the vulnerability feed
type NVDConfig struct {
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api_key"`
	BatchSize    int    `mapstructure:"batch_size"`
	LookbackDays int    `mapstructure:"lookback_days"`
	SkipUnscored bool   `mapstructure:"skip_unscored"`
}

// HIBPConfig configures the breach feed
type HIBPConfig struct {
	URL string `mapstructure:"url"`
}

// RenderConfig configures the generated Markdown
type RenderConfig struct {
	DescriptionLength int    `mapstructure:"description_length"`
	MaxDataClasses    int    `mapstructure:"max_data_classes"`
	IndicatorStyle    string `mapstructure:"indicator_style"`
	Title             string `mapstructure:"title"`
}

// MarkersConfig names the comments delimiting the generated section
type MarkersConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// SignConfig enables detached OpenPGP signatures of the updated document
type SignConfig struct {
	KeyFile       string `mapstructure:"key_file"`
	PassphraseEnv string `mapstructure:"passphrase_env"`
	Suffix        string `mapstructure:"suffix"`
}

// Enabled reports whether signing is configured
func (s SignConfig) Enabled() bool {
	return s.KeyFile != ""
}

// SlackConfig enables the post-update notification
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// Enabled reports whether notifications are configured
func (s SlackConfig) Enabled() bool {
	return s.WebhookURL != ""
}

// ArchiveConfig enables snapshot uploads to S3-compatible storage
type ArchiveConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Format   string `mapstructure:"format"`
}

// Enabled reports whether archiving is configured
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("count", 5)
	v.SetDefault("timeout", 20*time.Second)
	v.SetDefault("retries", 0)
	v.SetDefault("readme", "README.md")
	v.SetDefault("strict", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("user_agent", "threatfeed/1.0")

	v.SetDefault("nvd.url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("nvd.api_key", "")
	v.SetDefault("nvd.batch_size", 100)
	v.SetDefault("nvd.lookback_days", 7)
	v.SetDefault("nvd.skip_unscored", false)

	v.SetDefault("hibp.url", "https://haveibeenpwned.com/api/v3/breaches")

	v.SetDefault("render.description_length", 80)
	v.SetDefault("render.max_data_classes", 2)
	v.SetDefault("render.indicator_style", "emoji")
	v.SetDefault("render.title", "")

	v.SetDefault("markers.start", "<!-- SECURITY-START -->")
	v.SetDefault("markers.end", "<!-- SECURITY-END -->")

	v.SetDefault("sign.key_file", "")
	v.SetDefault("sign.passphrase_env", "THREATFEED_SIGN_PASSPHRASE")
	v.SetDefault("sign.suffix", ".asc")

	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.channel", "")

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "threatfeed")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.format", "json")
}

// NewViper returns a viper instance with defaults and environment binding.
// Keys are nested with dots; environment variables use underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a config file into v. An empty path searches the working
// directory for threatfeed.{yml,yaml,json,toml}; a missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "unable to read config file %s", path)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "unable to read config file")
	}
	return nil
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()))
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode into config struct")
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Render.IndicatorStyle = strings.ToLower(strings.TrimSpace(c.Render.IndicatorStyle))
	c.Archive.Format = strings.ToLower(strings.TrimSpace(c.Archive.Format))
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Count < 1 || c.Count > 50 {
		result = multierror.Append(result, fmt.Errorf("count must be between 1 and 50, got %d", c.Count))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Retries < 0 || c.Retries > 5 {
		result = multierror.Append(result, fmt.Errorf("retries must be between 0 and 5, got %d", c.Retries))
	}
	if c.Readme == "" {
		result = multierror.Append(result, errors.New("readme path is required"))
	}
	if !oneOf(c.LogLevel, "trace", "debug", "info", "warn", "error") {
		result = multierror.Append(result, fmt.Errorf("invalid log_level: %q", c.LogLevel))
	}
	if !oneOf(c.LogFormat, "console", "json") {
		result = multierror.Append(result, fmt.Errorf("invalid log_format: %q", c.LogFormat))
	}

	if c.NVD.URL == "" {
		result = multierror.Append(result, errors.New("nvd.url is required"))
	}
	if c.NVD.BatchSize < c.Count || c.NVD.BatchSize > 2000 {
		result = multierror.Append(result, fmt.Errorf("nvd.batch_size must be between count and 2000, got %d", c.NVD.BatchSize))
	}
	if c.NVD.LookbackDays < 1 || c.NVD.LookbackDays > 120 {
		result = multierror.Append(result, fmt.Errorf("nvd.lookback_days must be between 1 and 120, got %d", c.NVD.LookbackDays))
	}
	if c.HIBP.URL == "" {
		result = multierror.Append(result, errors.New("hibp.url is required"))
	}

	if c.Render.DescriptionLength < 4 {
		result = multierror.Append(result, fmt.Errorf("render.description_length must be at least 4, got %d", c.Render.DescriptionLength))
	}
	if c.Render.MaxDataClasses < 1 || c.Render.MaxDataClasses > 4 {
		result = multierror.Append(result, fmt.Errorf("render.max_data_classes must be between 1 and 4, got %d", c.Render.MaxDataClasses))
	}
	if !oneOf(c.Render.IndicatorStyle, "emoji", "badge") {
		result = multierror.Append(result, fmt.Errorf("invalid render.indicator_style: %q", c.Render.IndicatorStyle))
	}

	if c.Markers.Start == "" || c.Markers.End == "" {
		result = multierror.Append(result, errors.New("markers.start and markers.end are required"))
	} else if c.Markers.Start == c.Markers.End {
		result = multierror.Append(result, errors.New("markers.start and markers.end must differ"))
	}

	if c.Sign.Enabled() && c.Sign.Suffix == "" {
		result = multierror.Append(result, errors.New("sign.suffix is required when signing is enabled"))
	}
	if c.Archive.Enabled() && !oneOf(c.Archive.Format, "json", "yaml") {
		result = multierror.Append(result, fmt.Errorf("invalid archive.format: %q", c.Archive.Format))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
