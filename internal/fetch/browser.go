// Package fetch - browser.go renders JavaScript-heavy job boards in headless
// Chrome when the plain HTTP response carries no posting text.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds a single headless render.
const DefaultRenderTimeout = 30 * time.Second

// minPostingLength is the shortest extracted text accepted as a real posting.
// Board SPAs serve a shell shorter than this over plain HTTP.
const minPostingLength = 500

// settleDelay gives board scripts time to inject the posting body after the
// document is ready.
const settleDelay = 2 * time.Second

// ShouldUseBrowser reports whether extracted text is too short to be a job
// posting, meaning the page needs a script-capable render.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < minPostingLength
}

// Render loads url in headless Chrome and returns the DOM once scripts have
// settled. Requires Chrome or Chromium on the host.
func Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
		chromedp.ActionFunc(dismissConsentBanner),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}
	return html, nil
}

// dismissConsentBanner clicks a visible cookie-consent accept button if one
// exists. Failure is ignored; a banner overlays the posting without removing
// it from the DOM.
func dismissConsentBanner(ctx context.Context) error {
	_ = chromedp.Click(
		`button[id*="accept"], button[class*="accept"], button[aria-label*="Accept"]`,
		chromedp.NodeVisible,
	).Do(ctx)
	return nil
}
