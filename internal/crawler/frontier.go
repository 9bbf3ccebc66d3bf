package crawler

import (
	"context"
	"slices"
	"sync"
)

// Frontier is the crawl state of one site: the pending queue, the visited
// set and the discovered products. It is safe for concurrent use.
//
// The budget invariant |visited| + |pending| <= max holds at all times.
// A URL is moved from pending to visited when a worker claims it, so no URL
// is ever handed out twice.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	max      int
	pending  []string
	queued   map[string]struct{}
	visited  map[string]struct{}
	products map[string]struct{}

	// inFlight counts claimed URLs whose processing has not finished.
	inFlight int

	// peak is the largest |visited| + |pending| observed.
	peak int
}

// NewFrontier creates an empty frontier with a budget of maxPages URLs.
func NewFrontier(maxPages int) *Frontier {
	if maxPages < 0 {
		maxPages = 0
	}
	f := &Frontier{
		max:      maxPages,
		pending:  make([]string, 0),
		queued:   make(map[string]struct{}),
		visited:  make(map[string]struct{}),
		products: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue appends url to the pending queue. It reports false when url was
// already visited or pending, or when the budget is exhausted.
func (f *Frontier) Enqueue(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}
	if len(f.visited)+len(f.pending) >= f.max {
		return false
	}

	f.pending = append(f.pending, url)
	f.queued[url] = struct{}{}
	f.peak = max(f.peak, len(f.visited)+len(f.pending))
	f.cond.Signal()
	return true
}

// Claim removes the next pending URL, marks it visited and returns it.
// The caller must call Done once it has finished processing the URL.
//
// While the queue is empty but other workers are still processing, Claim
// blocks because they may enqueue more work. It returns false once the
// crawl is exhausted or ctx is done.
func (f *Frontier) Claim(ctx context.Context) (string, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return "", false
		}
		if len(f.visited) >= f.max {
			return "", false
		}
		for len(f.pending) > 0 {
			url := f.pending[0]
			f.pending = f.pending[1:]
			delete(f.queued, url)
			if _, ok := f.visited[url]; ok {
				continue
			}
			f.visited[url] = struct{}{}
			f.inFlight++
			return url, true
		}
		if f.inFlight == 0 {
			return "", false
		}
		f.cond.Wait()
	}
}

// Done marks one claimed URL as processed.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
	// Waiters either find new work or observe that the crawl is over.
	f.cond.Broadcast()
}

// AddProduct records url as a product URL. It reports whether url was new.
func (f *Frontier) AddProduct(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.products[url]; ok {
		return false
	}
	f.products[url] = struct{}{}
	return true
}

// Products returns the discovered product URLs in lexicographic order.
func (f *Frontier) Products() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	products := make([]string, 0, len(f.products))
	for url := range f.products {
		products = append(products, url)
	}
	slices.Sort(products)
	return products
}

// IsVisited reports whether url has been claimed.
func (f *Frontier) IsVisited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.visited[url]
	return ok
}

// Visited returns the number of claimed URLs.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// Pending returns the number of queued URLs.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Peak returns the largest number of visited plus pending URLs observed.
func (f *Frontier) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Max returns the page budget.
func (f *Frontier) Max() int {
	return f.max
}
