package schwab

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// session is a headless browser owned by a single Fetch call.
type session struct {
	ctx    context.Context
	cancel func()
	opts   options
}

func (s *holdingsService) openSession(ctx context.Context) (browser, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	actx, acancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	bctx, bcancel := chromedp.NewContext(
		actx,
		chromedp.WithErrorf(s.logf),
	)

	sess := &session{
		ctx: bctx,
		cancel: func() {
			bcancel()
			acancel()
		},
		opts: s.opts,
	}

	// starts the browser
	if err := chromedp.Run(bctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func (s *session) Close() {
	s.cancel()
}

func (s *session) Open(u string) error {
	tasks := chromedp.Tasks{}
	if s.opts.userAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(s.opts.userAgent))
	}
	tasks = append(tasks,
		chromedp.Navigate(u),
		chromedp.Click(
			`//a[@perpage='60']`,
			chromedp.BySearch,
			chromedp.NodeVisible,
		),
	)
	return chromedp.Run(s.ctx, runWithTimeout(s.opts.timeout, tasks))
}

func (s *session) PaginationText() (string, error) {
	var text string
	err := chromedp.Run(s.ctx, runWithTimeout(
		s.opts.paginationTimeout,
		chromedp.Tasks{
			chromedp.WaitVisible(".paginationContainer", chromedp.ByQuery),
			chromedp.Text(".paginationContainer", &text, chromedp.ByQuery),
		},
	))
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *session) Source() (string, error) {
	var src string
	err := chromedp.Run(s.ctx, runWithTimeout(
		s.opts.timeout,
		chromedp.Tasks{
			chromedp.OuterHTML("html", &src, chromedp.ByQuery),
		},
	))
	if err != nil {
		return "", err
	}
	return src, nil
}

func (s *session) GotoPage(n int) error {
	var scrolled, clicked bool
	err := chromedp.Run(s.ctx, runWithTimeout(
		s.opts.timeout,
		chromedp.Tasks{
			chromedp.Evaluate(scrollBottomJS, &scrolled),
			chromedp.Evaluate(fmt.Sprintf(clickPageJS, n), &clicked),
		},
	))
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("page control %d not found", n)
	}
	return nil
}

func (s *session) HeaderText() (string, error) {
	var scrolled bool
	var text string
	err := chromedp.Run(s.ctx, runWithTimeout(
		s.opts.timeout,
		chromedp.Tasks{
			chromedp.Evaluate(scrollTopJS, &scrolled),
			chromedp.Text(
				`//div[@modulename='FirstGlance']`,
				&text,
				chromedp.BySearch,
			),
		},
	))
	if err != nil {
		return "", err
	}
	return text, nil
}

func runWithTimeout(
	timeout time.Duration,
	tasks chromedp.Tasks,
) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if timeout <= 0 {
			return tasks.Do(ctx)
		}
		timeoutContext, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return tasks.Do(timeoutContext)
	}
}

const scrollBottomJS = `
window.scrollTo(0, document.body.scrollHeight);
true;
`

const scrollTopJS = `
window.scrollTo(0, -document.body.scrollHeight);
true;
`

// clicks the numbered page control from script, which also works
// when the control is covered by another element
const clickPageJS = `
(function() {
  var el = document.evaluate(
    "//li[@pagenumber='%d']",
    document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null
  ).singleNodeValue;
  if (!el) {
    return false;
  }
  el.click();
  return true;
})();
`
