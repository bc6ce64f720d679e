package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"szakszon.com/holdings"
)

const (
	StrategyBrowser = "browser"
	StrategyProxy   = "proxy"
)

type Config struct {
	Strategy string        `mapstructure:"strategy"`
	Output   OutputConfig  `mapstructure:"output"`
	Source   SourceConfig  `mapstructure:"source"`
	Browser  BrowserConfig `mapstructure:"browser"`
	Proxy    ProxyConfig   `mapstructure:"proxy"`
	Server   ServerConfig  `mapstructure:"server"`
	Log      LogConfig     `mapstructure:"log"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type SourceConfig struct {
	URLTemplate string `mapstructure:"url_template"`
}

type BrowserConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	PaginationTimeout time.Duration `mapstructure:"pagination_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"`
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
}

type ProxyConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Rate     time.Duration `mapstructure:"rate"` // minimum gap between requests
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`       // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"`      // "console" or "json"
	OutputFile string `mapstructure:"output_file"` // optional
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy", StrategyBrowser)
	v.SetDefault("output.dir", ".")
	v.SetDefault("source.url_template", holdings.DefaultURLTemplate)
	v.SetDefault("browser.timeout", 15*time.Second)
	v.SetDefault("browser.pagination_timeout", 30*time.Second)
	v.SetDefault("browser.poll_interval", 250*time.Millisecond)
	v.SetDefault("browser.page_timeout", 30*time.Second)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("proxy.endpoint", "https://production-sfo.browserless.io/content")
	v.SetDefault("proxy.token", "")
	v.SetDefault("proxy.timeout", 60*time.Second)
	v.SetDefault("proxy.rate", time.Second)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
}

// Load reads configuration from, in increasing priority: defaults,
// the config file, HOLDINGS_* environment variables and the flags
// in bindings that were set on the command line. An empty file looks
// for an optional holdings.yaml in the working directory.
func Load(
	file string,
	flags *pflag.FlagSet,
	bindings map[string]string,
) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("holdings")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HOLDINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("bind %s: unknown flag %q", key, name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyBrowser, StrategyProxy:
	default:
		return fmt.Errorf("invalid strategy %q", c.Strategy)
	}
	if !strings.Contains(c.Source.URLTemplate, "%s") {
		return fmt.Errorf("url template %q has no %%s", c.Source.URLTemplate)
	}
	// A zero page timeout would make the page-diff backoff retry forever.
	if c.Browser.PageTimeout <= 0 {
		return fmt.Errorf("browser.page_timeout must be positive, got %v", c.Browser.PageTimeout)
	}
	if c.Browser.PollInterval <= 0 {
		return fmt.Errorf("browser.poll_interval must be positive, got %v", c.Browser.PollInterval)
	}
	return nil
}
