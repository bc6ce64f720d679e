package fetcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"szakszon.com/holdings"
	"szakszon.com/holdings/fs"
	"szakszon.com/holdings/logger"
	"szakszon.com/holdings/units"
)

var tracer = otel.Tracer("holdings.fetcher")

type options struct {
	holdingsService holdings.HoldingsService
	writer          *fs.Writer
	raw             bool
	logEntries      bool
	logger          logger.Logger
}

type Option func(o options) options

func HoldingsService(s holdings.HoldingsService) Option {
	return func(o options) options {
		o.holdingsService = s
		return o
	}
}

func Writer(w *fs.Writer) Option {
	return func(o options) options {
		o.writer = w
		return o
	}
}

// Raw writes normalized numbers instead of display strings.
func Raw(v bool) Option {
	return func(o options) options {
		o.raw = v
		return o
	}
}

// LogEntries collects fund metadata for etf-log.csv.
func LogEntries(v bool) Option {
	return func(o options) options {
		o.logEntries = v
		return o
	}
}

func Log(l logger.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}

var defaultOptions = options{
	writer: &fs.Writer{Dir: "."},
	logger: nil,
}

func NewFetcher(os ...Option) *Fetcher {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	return &Fetcher{
		opts: opts,
		seen: make(map[string]struct{}),
	}
}

// Fetcher holds the state of one download run.
type Fetcher struct {
	opts    options
	seen    map[string]struct{}
	symbols []string
	entries []*holdings.LogEntry
	files   int
	errs    []error
}

// Fetch downloads the symbols one after the other. A failed symbol is
// recorded in Errs and does not stop the run; a symbol seen before in
// this run is skipped.
func (f *Fetcher) Fetch(ctx context.Context, symbols []string) {
LOOP:
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			break LOOP
		default:
			// noop
		}

		if _, ok := f.seen[symbol]; ok {
			continue
		}
		f.seen[symbol] = struct{}{}

		n, err := f.fetch(ctx, symbol)
		if err != nil {
			logger.Warnf(f.opts.logger, "%s not retrieved: %v", symbol, err)
			f.errs = append(f.errs, &FetchError{Symbol: symbol, Err: err})
			continue
		}

		f.symbols = append(f.symbols, symbol)
		f.files++
		f.log("%s: %d holdings retrieved", symbol, n)
	}
}

func (f *Fetcher) fetch(ctx context.Context, symbol string) (int, error) {
	ctx, span := tracer.Start(ctx, "symbol", trace.WithAttributes(
		attribute.String("symbol", symbol),
	))
	defer span.End()

	out, err := f.opts.holdingsService.Fetch(
		ctx,
		&holdings.HoldingsFetchInput{
			Symbol:   symbol,
			LogEntry: f.opts.logEntries,
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return 0, err
	}

	records, err := f.records(out.Holdings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize failed")
		return 0, err
	}

	if _, err := f.opts.writer.WriteHoldings(symbol, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return 0, err
	}

	if f.opts.logEntries && out.LogEntry != nil {
		f.entries = append(f.entries, out.LogEntry)
	}
	span.SetAttributes(attribute.Int("holdings", len(records)))
	return len(records), nil
}

func (f *Fetcher) records(hs []*holdings.Holding) ([][]string, error) {
	records := make([][]string, 0, len(hs))
	for _, h := range hs {
		rec := []string{
			h.Symbol,
			h.Description,
			h.PortfolioWeight,
			h.SharesHeld,
			h.MarketValue,
		}
		if f.opts.raw {
			for i := 2; i < len(rec); i++ {
				v, err := units.NormalizeString(rec[i])
				if err != nil {
					return nil, fmt.Errorf("%s: %v", h.Symbol, err)
				}
				rec[i] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteLog writes etf-log.csv from the entries collected so far.
func (f *Fetcher) WriteLog() (string, error) {
	f.log("Generating log file...")
	p, err := f.opts.writer.WriteLog(f.entries)
	if err != nil {
		return "", err
	}
	f.files++
	return p, nil
}

// Symbols returns the symbols written in this run, in order.
func (f *Fetcher) Symbols() []string {
	return f.symbols
}

func (f *Fetcher) LogEntries() []*holdings.LogEntry {
	return f.entries
}

// Files is the number of files written in this run.
func (f *Fetcher) Files() int {
	return f.files
}

func (f *Fetcher) Errs() []error {
	return f.errs
}

func (f *Fetcher) log(format string, v ...interface{}) {
	if f.opts.logger != nil {
		f.opts.logger.Logf(format, v...)
	}
}

type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
