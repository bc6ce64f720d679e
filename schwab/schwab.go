package schwab

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"szakszon.com/holdings"
	"szakszon.com/holdings/logger"
	"szakszon.com/holdings/table"
)

var tracer = otel.Tracer("holdings.schwab")

const (
	perPage        = 60
	holdingsMatch  = "Symbol"
	maxPollBackoff = 2 * time.Second
)

// browser is one open browser session positioned on a holdings page.
type browser interface {
	page
	Open(u string) error
	PaginationText() (string, error)
	HeaderText() (string, error)
	Close()
}

type page interface {
	Source() (string, error)
	GotoPage(n int) error
}

func NewHoldingsService(
	os ...Option,
) holdings.HoldingsService {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	s := &holdingsService{
		opts: opts,
	}
	s.open = s.openSession
	return s
}

type holdingsService struct {
	opts options
	open func(ctx context.Context) (browser, error)
}

func (s *holdingsService) Fetch(
	ctx context.Context,
	in *holdings.HoldingsFetchInput,
) (*holdings.HoldingsFetchOutput, error) {
	ctx, span := tracer.Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("symbol", in.Symbol),
	))
	defer span.End()

	s.logf("Opening %s database", in.Symbol)
	b, err := s.open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open browser")
		return nil, fmt.Errorf("%w: %v", holdings.ErrNotRetrieved, err)
	}
	defer b.Close()

	out, err := s.fetch(ctx, b, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch holdings")
		return nil, err
	}
	return out, nil
}

func (s *holdingsService) fetch(
	ctx context.Context,
	b browser,
	in *holdings.HoldingsFetchInput,
) (*holdings.HoldingsFetchOutput, error) {
	u := fmt.Sprintf(s.opts.urlTemplate, in.Symbol)
	if err := b.Open(u); err != nil {
		return nil, fmt.Errorf("%w: %v", holdings.ErrNotRetrieved, err)
	}

	text, err := b.PaginationText()
	if err != nil {
		return nil, fmt.Errorf("pagination: %v", err)
	}
	numPages, err := pageCount(text)
	if err != nil {
		return nil, fmt.Errorf("pagination: %v", err)
	}

	if err := sleep(ctx, s.opts.settle); err != nil {
		return nil, err
	}

	t, err := s.collect(ctx, b, in.Symbol, numPages)
	if err != nil {
		return nil, err
	}
	if len(t.Header) != 0 && len(t.Header) != len(holdings.HoldingsHeader) {
		return nil, fmt.Errorf(
			"unexpected holdings columns: %v",
			t.Header,
		)
	}

	hs, err := holdings.HoldingsFromRows(t.Rows)
	if err != nil {
		return nil, err
	}

	out := &holdings.HoldingsFetchOutput{
		Holdings: hs,
	}
	if in.LogEntry {
		out.LogEntry = s.logEntry(b, in.Symbol, len(hs))
	}
	return out, nil
}

// collect reads page 1 from the current page and then walks pages
// 2..numPages, waiting for each page's table to replace the previous one.
func (s *holdingsService) collect(
	ctx context.Context,
	p page,
	symbol string,
	numPages int,
) (*table.Table, error) {
	s.logf("%s: page 1 of %d", symbol, numPages)
	src, err := p.Source()
	if err != nil {
		return nil, fmt.Errorf("page 1: %v", err)
	}
	first, err := table.Parse(src, holdingsMatch)
	if err != nil {
		return nil, fmt.Errorf("page 1: %w", err)
	}

	tables := []*table.Table{first}
	for n := 2; n <= numPages; n++ {
		s.logf("%s: page %d of %d", symbol, n, numPages)

		_, span := tracer.Start(ctx, "page", trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.Int("page", n),
		))
		if err := p.GotoPage(n); err != nil {
			span.End()
			return nil, fmt.Errorf("page %d: %v", n, err)
		}
		t, err := s.waitForPage(ctx, p, tables[len(tables)-1])
		span.End()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		tables = append(tables, t)
	}

	return table.Concat(tables...), nil
}

// waitForPage polls the page source until its holdings table differs
// from prev. Polling backs off from pollInterval and gives up after
// pageTimeout.
func (s *holdingsService) waitForPage(
	ctx context.Context,
	p page,
	prev *table.Table,
) (*table.Table, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.pollInterval
	b.MaxInterval = maxPollBackoff
	b.MaxElapsedTime = s.opts.pageTimeout

	var cur *table.Table
	op := func() error {
		src, err := p.Source()
		if err != nil {
			return backoff.Permanent(err)
		}
		t, err := table.Parse(src, holdingsMatch)
		if err != nil {
			return err
		}
		if t.Equal(prev) {
			return holdings.ErrPageUnchanged
		}
		cur = t
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// logEntry scrapes the fund header. Failures yield no entry.
func (s *holdingsService) logEntry(
	b browser,
	symbol string,
	n int,
) *holdings.LogEntry {
	text, err := b.HeaderText()
	if err != nil {
		return nil
	}
	e, err := parseHeader(symbol, text)
	if err != nil {
		return nil
	}
	e.NumHoldings = n
	return e
}

// pageCount reads the total item count from a pagination caption
// such as "1 - 60 of 503 items".
func pageCount(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) < 5 {
		return 0, fmt.Errorf("unexpected pagination text %q", text)
	}
	total, err := strconv.ParseFloat(strings.ReplaceAll(fields[4], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parse item count %q: %v", fields[4], err)
	}
	n := int(math.Ceil(total / perPage))
	if n < 1 {
		n = 1
	}
	return n, nil
}

var asciiOnly = runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
}))

func parseHeader(symbol, text string) (*holdings.LogEntry, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("unexpected header: %q", text)
	}

	name := strings.Split(lines[0], " "+symbol+":")[0]
	name, _, err := transform.String(asciiOnly, name)
	if err != nil {
		return nil, err
	}

	lastPrice := strings.Split(strings.TrimSpace(lines[2]), " ")[0]
	if lastPrice == "" {
		return nil, fmt.Errorf("no last price in header: %q", text)
	}

	return &holdings.LogEntry{
		Symbol:    symbol,
		Name:      strings.TrimSpace(name),
		LastPrice: lastPrice,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *holdingsService) logf(
	format string,
	v ...interface{},
) {
	w := s.opts.logger
	if w != nil {
		w.Logf(format, v...)
	}
}

var defaultOptions = options{
	urlTemplate:       holdings.DefaultURLTemplate,
	timeout:           15 * time.Second,
	paginationTimeout: 30 * time.Second,
	pollInterval:      250 * time.Millisecond,
	pageTimeout:       30 * time.Second,
	settle:            500 * time.Millisecond,
	headless:          true,
	userAgent:         "",
	logger:            nil,
}

type options struct {
	urlTemplate       string
	timeout           time.Duration // navigation and element lookups
	paginationTimeout time.Duration
	pollInterval      time.Duration
	pageTimeout       time.Duration // page-diff wait per page
	settle            time.Duration
	headless          bool
	userAgent         string
	logger            logger.Logger
}

type Option func(o options) options

func URLTemplate(v string) Option {
	return func(o options) options {
		o.urlTemplate = v
		return o
	}
}

func Timeout(d time.Duration) Option {
	return func(o options) options {
		o.timeout = d
		return o
	}
}

func PaginationTimeout(d time.Duration) Option {
	return func(o options) options {
		o.paginationTimeout = d
		return o
	}
}

func PollInterval(d time.Duration) Option {
	return func(o options) options {
		o.pollInterval = d
		return o
	}
}

func PageTimeout(d time.Duration) Option {
	return func(o options) options {
		o.pageTimeout = d
		return o
	}
}

func Headless(v bool) Option {
	return func(o options) options {
		o.headless = v
		return o
	}
}

func UserAgent(v string) Option {
	return func(o options) options {
		o.userAgent = v
		return o
	}
}

func Log(l logger.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}
