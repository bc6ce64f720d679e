package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"szakszon.com/holdings"
	"szakszon.com/holdings/cli"
	"szakszon.com/holdings/config"
	"szakszon.com/holdings/logger"
	"szakszon.com/holdings/renderproxy"
	"szakszon.com/holdings/schwab"
)

var downloadFlags struct {
	symbols []string
	file    string
	raw     bool
	logFile bool
	alpha   bool
	quiet   bool
	timeout int
}

var downloadCmd = &cobra.Command{
	Use:   "download (--symbol SYM [SYM ...] | --file FILE)",
	Short: "Downloads the holdings of the given ETFs into <SYMBOL>-holdings.csv files.",
	RunE:  runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringArrayVarP(&downloadFlags.symbols, "symbol", "s", nil,
		"ETF symbols to download; further arguments are added as symbols.")
	f.StringVarP(&downloadFlags.file, "file", "f", "",
		"File with one ETF symbol per line.")
	f.BoolVarP(&downloadFlags.raw, "raw", "r", false,
		"Write numbers without $, %, commas and K/M/B suffixes.")
	f.BoolVarP(&downloadFlags.logFile, "log", "l", false,
		"Also write etf-log.csv with the name, last price and holdings count of each ETF.")
	f.BoolVarP(&downloadFlags.alpha, "alpha", "a", false,
		"Process symbols in alphabetical order.")
	f.BoolVarP(&downloadFlags.quiet, "quiet", "q", false,
		"Only print warnings and errors.")
	f.IntVarP(&downloadFlags.timeout, "time", "t", 15,
		"Seconds to wait for a page to load.")
	f.String("strategy", config.StrategyBrowser,
		"How to render pages: browser or proxy.")
	f.String("dir", ".", "Directory to write the CSV files to.")

	downloadCmd.MarkFlagsMutuallyExclusive("symbol", "file")
	downloadCmd.MarkFlagsOneRequired("symbol", "file")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if downloadFlags.file != "" && len(args) > 0 {
		return fmt.Errorf("unexpected arguments with --file: %v", args)
	}

	cfg, err := config.Load(configFile, cmd.Flags(), map[string]string{
		"strategy":   "strategy",
		"output.dir": "dir",
	})
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("time") {
		cfg.Browser.Timeout = time.Duration(downloadFlags.timeout) * time.Second
	}

	zl, err := newLogger(cfg, downloadFlags.quiet)
	if err != nil {
		return err
	}
	defer zl.Sync()
	log := logger.Sugar(zl)

	symbols := append(append([]string{}, downloadFlags.symbols...), args...)

	c := cli.NewCommand(
		"download",
		symbols,
		cli.Writer(os.Stdout),
		cli.Dir(cfg.Output.Dir),
		cli.SymbolsFile(downloadFlags.file),
		cli.Raw(downloadFlags.raw),
		cli.LogFile(downloadFlags.logFile),
		cli.Alpha(downloadFlags.alpha),
		cli.Quiet(downloadFlags.quiet),
		cli.HoldingsService(newService(cfg, log)),
		cli.Logger(log),
	)
	return c.Execute(cmd.Context())
}

// newService is replaced in tests.
var newService = newHoldingsService

func newHoldingsService(
	cfg *config.Config,
	log logger.Logger,
) holdings.HoldingsService {
	if cfg.Strategy == config.StrategyProxy {
		return renderproxy.NewHoldingsService(
			renderproxy.Endpoint(cfg.Proxy.Endpoint),
			renderproxy.URLTemplate(cfg.Source.URLTemplate),
			renderproxy.Token(cfg.Proxy.Token),
			renderproxy.Timeout(cfg.Proxy.Timeout),
			renderproxy.RateLimiter(rate.NewLimiter(rate.Every(cfg.Proxy.Rate), 1)),
			renderproxy.Log(log),
		)
	}

	return schwab.NewHoldingsService(
		schwab.URLTemplate(cfg.Source.URLTemplate),
		schwab.Timeout(cfg.Browser.Timeout),
		schwab.PaginationTimeout(cfg.Browser.PaginationTimeout),
		schwab.PollInterval(cfg.Browser.PollInterval),
		schwab.PageTimeout(cfg.Browser.PageTimeout),
		schwab.Headless(cfg.Browser.Headless),
		schwab.UserAgent(cfg.Browser.UserAgent),
		schwab.Log(log),
	)
}
