// Package crawler discovers product URLs on a single storefront.
//
// # Components
//
//   - Frontier: the shared work queue with its visited and product sets.
//   - Parser: extracts anchor hrefs from rendered HTML.
//   - SiteCrawler: runs a pool of fetch workers over a Frontier.
//
// # Crawl loop
//
// Each worker claims a URL from the frontier, renders it through a
// render.Session and extracts its anchors. Anchors are resolved against the
// page URL, filtered to the site's registrable domain and classified.
// Product links are recorded and enqueued, category links are enqueued and
// other links are enqueued only when the site follows them.
//
// The page budget is enforced when enqueueing: the number of visited plus
// pending URLs never exceeds the site's MaxPages. The crawl ends when no URL
// is pending and no worker is processing one.
//
// # Politeness
//
// A SiteCrawler can throttle renders with a token bucket and can consult the
// site's robots.txt before enqueueing a link. Both are off by default.
//
// # Usage
//
//	c := crawler.NewSiteCrawler(engine, classifier,
//		crawler.WithWorkers(5),
//		crawler.WithTimeout(15*time.Second),
//	)
//	result, err := c.Crawl(ctx, site)
package crawler
