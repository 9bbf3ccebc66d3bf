package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsFetchTimeout bounds a single robots.txt request.
const robotsFetchTimeout = 10 * time.Second

// RobotsGuard answers robots.txt queries for the hosts of one crawl.
// Rules are fetched once per host and cached for the guard's lifetime.
// Fetch or parse failures allow everything.
type RobotsGuard struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.Group
}

// NewRobotsGuard creates a guard that identifies itself as userAgent.
func NewRobotsGuard(client *http.Client, userAgent string) *RobotsGuard {
	if client == nil {
		client = &http.Client{Timeout: robotsFetchTimeout}
	}
	return &RobotsGuard{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether rawURL may be crawled.
func (g *RobotsGuard) Allowed(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false
	}

	group := g.group(ctx, target)
	if group == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return group.Test(path)
}

func (g *RobotsGuard) group(ctx context.Context, target *url.URL) *robotstxt.Group {
	host := strings.ToLower(target.Host)

	g.mu.Lock()
	group, ok := g.cache[host]
	g.mu.Unlock()
	if ok {
		return group
	}

	data, err := g.fetch(ctx, target)
	if err == nil {
		group = data.FindGroup(g.userAgent)
	}

	g.mu.Lock()
	// A concurrent fetch for the same host may have won; either result is
	// equivalent.
	g.cache[host] = group
	g.mu.Unlock()
	return group
}

func (g *RobotsGuard) fetch(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	ctx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
