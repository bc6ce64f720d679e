package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"szakszon.com/holdings"
	"szakszon.com/holdings/fetcher"
	"szakszon.com/holdings/fs"
	"szakszon.com/holdings/logger"
	"szakszon.com/holdings/server"
	"szakszon.com/holdings/symbols"
)

type Command struct {
	name string
	opts options
	args []string
}

func NewCommand(
	name string,
	args []string,
	os ...Option,
) *Command {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	return &Command{
		name: name,
		opts: opts,
		args: args,
	}
}

func (c *Command) Execute(ctx context.Context) error {
	switch c.name {
	case "download":
		return c.download(ctx)
	case "serve":
		return c.serve(ctx)
	default:
		return fmt.Errorf("invalid command: %v", c.name)
	}
}

func (c *Command) download(ctx context.Context) error {
	syms, err := c.resolveSymbols()
	if err != nil {
		return err
	}
	if len(syms) == 0 {
		c.logf("No symbols given")
	}
	if c.opts.holdingsService == nil {
		return fmt.Errorf("no holdings service configured")
	}

	f := fetcher.NewFetcher(
		fetcher.HoldingsService(c.opts.holdingsService),
		fetcher.Writer(&fs.Writer{Dir: c.opts.dir}),
		fetcher.Raw(c.opts.raw),
		fetcher.LogEntries(c.opts.logFile),
		fetcher.Log(c.opts.logger),
	)
	f.Fetch(ctx, syms)

	if c.opts.logFile {
		if _, err := f.WriteLog(); err != nil {
			return err
		}
	}

	if !c.opts.quiet {
		c.writeSummary(f)
	}
	return ctx.Err()
}

func (c *Command) resolveSymbols() ([]string, error) {
	var syms []string
	if c.opts.symbolsFile != "" {
		c.logf("Reading symbols from %s", c.opts.symbolsFile)
		var err error
		syms, err = symbols.ReadFile(c.opts.symbolsFile)
		if err != nil {
			return nil, err
		}
	} else {
		syms = symbols.FromArgs(c.args)
	}

	if c.opts.alpha {
		symbols.Sort(syms)
	}
	return syms, nil
}

func (c *Command) writeSummary(f *fetcher.Fetcher) {
	c.writef(
		"\n%d file(s) have been generated for %d ETF(s):\n",
		f.Files(),
		len(f.Symbols()),
	)
	if c.opts.logFile {
		c.writef("%s\n", fs.LogFileName)
	}
	for _, symbol := range f.Symbols() {
		c.writef("%s\n", fs.HoldingsFileName(symbol))
	}
}

func (c *Command) serve(ctx context.Context) error {
	if c.opts.runner == nil {
		return fmt.Errorf("no runner configured")
	}

	h := server.NewHandler(c.opts.runner, c.opts.zapLogger)
	srv := &http.Server{
		Addr:    c.opts.addr,
		Handler: server.NewRouter(h),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	c.logf("Listening on %s", c.opts.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			c.opts.shutdownTimeout,
		)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (c *Command) writef(format string, v ...interface{}) {
	if c.opts.writer != nil {
		fmt.Fprintf(c.opts.writer, format, v...)
	}
}

func (c *Command) logf(format string, v ...interface{}) {
	if c.opts.logger != nil {
		c.opts.logger.Logf(format, v...)
	}
}

var defaultOptions = options{
	dir:             ".",
	addr:            ":8000",
	shutdownTimeout: 10 * time.Second,
}

type options struct {
	writer          io.Writer
	dir             string
	symbolsFile     string
	raw             bool
	logFile         bool
	alpha           bool
	quiet           bool
	holdingsService holdings.HoldingsService
	logger          logger.Logger
	zapLogger       *zap.Logger
	addr            string
	runner          server.Runner
	shutdownTimeout time.Duration
}

type Option func(o options) options

func Writer(v io.Writer) Option {
	return func(o options) options {
		o.writer = v
		return o
	}
}

func Dir(v string) Option {
	return func(o options) options {
		o.dir = v
		return o
	}
}

func SymbolsFile(v string) Option {
	return func(o options) options {
		o.symbolsFile = v
		return o
	}
}

func Raw(v bool) Option {
	return func(o options) options {
		o.raw = v
		return o
	}
}

func LogFile(v bool) Option {
	return func(o options) options {
		o.logFile = v
		return o
	}
}

func Alpha(v bool) Option {
	return func(o options) options {
		o.alpha = v
		return o
	}
}

func Quiet(v bool) Option {
	return func(o options) options {
		o.quiet = v
		return o
	}
}

func HoldingsService(v holdings.HoldingsService) Option {
	return func(o options) options {
		o.holdingsService = v
		return o
	}
}

func Logger(v logger.Logger) Option {
	return func(o options) options {
		o.logger = v
		return o
	}
}

func ZapLogger(v *zap.Logger) Option {
	return func(o options) options {
		o.zapLogger = v
		return o
	}
}

func Addr(v string) Option {
	return func(o options) options {
		o.addr = v
		return o
	}
}

func Runner(v server.Runner) Option {
	return func(o options) options {
		o.runner = v
		return o
	}
}
