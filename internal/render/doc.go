// Package render turns a URL into rendered HTML.
//
// An Engine is started once per run and opens one Session per site. A
// Session carries the site's browser profile (user agent, locale, extra
// headers and viewport) and owns a bounded Pool of render handles: browser
// tabs for chromedp, pages for playwright, and request slots for the static
// HTTP engine. Workers acquire a handle for each render and release it
// afterwards, so the number of concurrent renders never exceeds the pool
// size even when more workers are running.
//
// Three engines are provided:
//   - chromedp: headless Chrome over the DevTools protocol (default)
//   - playwright: Chromium, Firefox or WebKit through playwright-go
//   - http: plain HTTP GET without JavaScript, for static storefronts
//
// Options.Proxy sends all engine traffic through an HTTP or SOCKS5 proxy.
// The proxy is checked before the engine starts.
//
// Failing to start an engine is reported as ErrEngineUnavailable; a render
// that exceeds its deadline is reported as ErrRenderTimeout.
package render
