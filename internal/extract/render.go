package extract

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultRenderTimeout = 60 * time.Second

	// renderSettle gives client-side frameworks a beat to hydrate after
	// the document is ready.
	renderSettle = 1500 * time.Millisecond
)

// Renderer loads a page in a real browser engine and returns the
// resulting DOM as HTML. It is the fallback for pages whose content is
// assembled client-side.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// ChromeRenderer renders pages with headless Chrome via the DevTools
// protocol. The zero value is usable.
type ChromeRenderer struct {
	Timeout time.Duration
}

func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{Timeout: timeout}
}

func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
