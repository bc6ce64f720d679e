package renderproxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"szakszon.com/holdings"
	"szakszon.com/holdings/httprate"
	"szakszon.com/holdings/logger"
	"szakszon.com/holdings/table"
)

const DefaultEndpoint = "https://production-sfo.browserless.io/content"

const holdingsMatch = "Symbol"

var ErrNoToken = errors.New("render proxy token not configured")

type renderRequest struct {
	URL string `json:"url"`
}

func NewHoldingsService(
	os ...Option,
) holdings.HoldingsService {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	client := resty.NewWithClient(httprate.NewClient(opts.rateLimiter)).
		SetTimeout(opts.timeout).
		SetHeader("User-Agent", opts.userAgent)

	return &holdingsService{
		client: client,
		opts:   opts,
	}
}

type holdingsService struct {
	client *resty.Client
	opts   options
}

// Fetch renders the holdings page through the proxy. Only the first
// page of the table is returned and no log entry is produced.
func (s *holdingsService) Fetch(
	ctx context.Context,
	in *holdings.HoldingsFetchInput,
) (*holdings.HoldingsFetchOutput, error) {
	if s.opts.token == "" {
		return nil, ErrNoToken
	}

	u := fmt.Sprintf(s.opts.urlTemplate, in.Symbol)
	s.logf("Rendering %s", in.Symbol)

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("token", s.opts.token).
		SetHeader("Content-Type", "application/json").
		SetBody(renderRequest{URL: u}).
		Post(s.opts.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", holdings.ErrNotRetrieved, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf(
			"%w: http error: %d",
			holdings.ErrNotRetrieved,
			resp.StatusCode(),
		)
	}

	t, err := table.Parse(resp.String(), holdingsMatch)
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
	return &holdings.HoldingsFetchOutput{
		Holdings: hs,
	}, nil
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

const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.93 Safari/537.36 OPR/76.0.4017.123"

var defaultOptions = options{
	endpoint:    DefaultEndpoint,
	urlTemplate: holdings.DefaultURLTemplate,
	token:       "",
	rateLimiter: rate.NewLimiter(rate.Every(1*time.Second), 1),
	userAgent:   defaultUA,
	timeout:     60 * time.Second,
	logger:      nil,
}

type options struct {
	endpoint    string
	urlTemplate string
	token       string
	rateLimiter *rate.Limiter
	userAgent   string
	timeout     time.Duration
	logger      logger.Logger
}

type Option func(o options) options

func Endpoint(v string) Option {
	return func(o options) options {
		o.endpoint = v
		return o
	}
}

func URLTemplate(v string) Option {
	return func(o options) options {
		o.urlTemplate = v
		return o
	}
}

func Token(v string) Option {
	return func(o options) options {
		o.token = v
		return o
	}
}

func RateLimiter(l *rate.Limiter) Option {
	return func(o options) options {
		o.rateLimiter = l
		return o
	}
}

func Timeout(d time.Duration) Option {
	return func(o options) options {
		o.timeout = d
		return o
	}
}

func Log(l logger.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}
