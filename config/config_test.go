package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"szakszon.com/holdings"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
	require.NoError(t, err)

	require.Equal(t, StrategyBrowser, cfg.Strategy)
	require.Equal(t, ".", cfg.Output.Dir)
	require.Equal(t, holdings.DefaultURLTemplate, cfg.Source.URLTemplate)
	require.Equal(t, 15*time.Second, cfg.Browser.Timeout)
	require.Equal(t, 30*time.Second, cfg.Browser.PageTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.Browser.PollInterval)
	require.True(t, cfg.Browser.Headless)
	require.Empty(t, cfg.Proxy.Token)
	require.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "holdings.yaml")
	err := os.WriteFile(p, []byte(`
strategy: proxy
output:
  dir: out
browser:
  page_timeout: 45s
proxy:
  token: from-file
log:
  level: debug
`), 0644)
	require.NoError(t, err)

	t.Setenv("HOLDINGS_PROXY_TOKEN", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", ".", "")
	flags.String("strategy", "browser", "")
	require.NoError(t, flags.Parse([]string{"--dir", "csv"}))

	cfg, err := Load(p, flags, map[string]string{
		"output.dir": "dir",
		"strategy":   "strategy",
	})
	require.NoError(t, err)

	require.Equal(t, StrategyProxy, cfg.Strategy)
	require.Equal(t, "csv", cfg.Output.Dir)
	require.Equal(t, 45*time.Second, cfg.Browser.PageTimeout)
	require.Equal(t, "from-env", cfg.Proxy.Token)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
	require.Error(t, err)
}

func TestLoadUnknownFlag(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("", pflag.NewFlagSet("test", pflag.ContinueOnError), map[string]string{
		"output.dir": "missing",
	})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Strategy: StrategyProxy,
			Source:   SourceConfig{URLTemplate: "https://x/%s"},
			Browser: BrowserConfig{
				PageTimeout:  30 * time.Second,
				PollInterval: 250 * time.Millisecond,
			},
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Strategy = "carrier-pigeon"
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Source.URLTemplate = "https://x/"
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Browser.PageTimeout = 0
	require.EqualError(t, cfg.Validate(), "browser.page_timeout must be positive, got 0s")

	cfg = valid()
	cfg.Browser.PollInterval = -time.Second
	require.EqualError(t, cfg.Validate(), "browser.poll_interval must be positive, got -1s")
}

func TestLoadRejectsZeroPageTimeout(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOLDINGS_BROWSER_PAGE_TIMEOUT", "0")

	_, err := Load("", pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
	require.ErrorContains(t, err, "browser.page_timeout")
}
