package crawler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nao1215/wordscan/internal/fetch"
	"github.com/nao1215/wordscan/internal/model"
)

// Default crawl limits.
const (
	// DefaultLimit is the maximum number of HTML pages per crawl.
	DefaultLimit = 30

	// DefaultTopN is the number of words returned.
	DefaultTopN = 5
)

// State is the phase of a crawl.
type State int

const (
	// StateRunning means pages are still being fetched.
	StateRunning State = iota

	// StateDraining means the page limit was reached and the frontier has been dropped.
	StateDraining

	// StateDone means the crawl is over.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// PageEvent describes one processed URL. It is passed to the page hook.
type PageEvent struct {
	// URL is the processed URL.
	URL string

	// Skipped is true when the URL was not HTML and was not downloaded.
	Skipped bool

	// ContentType is the Content-Type returned by HEAD.
	ContentType string

	// LinksFound is the number of same-domain links on the page, duplicates included.
	LinksFound int

	// LinksQueued is the number of those links that were new.
	LinksQueued int

	// PagesCrawled is the running count of crawled HTML pages.
	PagesCrawled int

	// Frontier is the number of URLs still waiting.
	Frontier int
}

// Result is the outcome of a crawl.
type Result struct {
	// TopWords holds the most frequent words, highest first.
	TopWords []model.WordFrequency

	// PagesCrawled is the number of HTML pages downloaded and scanned.
	PagesCrawled int

	// PagesSkipped is the number of URLs whose HEAD response was not HTML.
	PagesSkipped int

	// Visited is the number of distinct URLs discovered, seed included.
	Visited int
}

// Controller runs crawls. A Controller holds no per-crawl state and can
// run several crawls at once, each strictly sequential.
//
// Design decision: Each crawl is an explicit state machine (crawlRun) with
// RUNNING, DRAINING and DONE states, advanced one URL per step. The frontier,
// visited set and word counts belong to the run, not the Controller, so a
// crawl never observes another crawl's state. A page is fetched with HEAD
// first and downloaded only when the response is text/html.
type Controller struct {
	fetcher       fetch.Fetcher
	limit         int
	topN          int
	minWordLength int
	logger        *slog.Logger
	onPage        func(PageEvent)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLimit sets the maximum number of HTML pages. Values below 1 are ignored.
func WithLimit(limit int) Option {
	return func(c *Controller) {
		if limit >= 1 {
			c.limit = limit
		}
	}
}

// WithTopN sets the number of words returned.
func WithTopN(n int) Option {
	return func(c *Controller) {
		c.topN = n
	}
}

// WithMinWordLength sets the shortest counted word, in runes.
func WithMinWordLength(n int) Option {
	return func(c *Controller) {
		c.minWordLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithPageHook registers a function called after every processed URL.
// It runs on the crawl goroutine.
func WithPageHook(fn func(PageEvent)) Option {
	return func(c *Controller) {
		c.onPage = fn
	}
}

// NewController creates a Controller that fetches through f.
func NewController(f fetch.Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:       f,
		limit:         DefaultLimit,
		topN:          DefaultTopN,
		minWordLength: DefaultMinWordLength,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limit returns the maximum number of HTML pages per crawl.
func (c *Controller) Limit() int { return c.limit }

// TopN returns the number of words a crawl reports.
func (c *Controller) TopN() int { return c.topN }

// MinWordLength returns the shortest counted word.
func (c *Controller) MinWordLength() int { return c.minWordLength }

// Crawl crawls the site of seed and returns its most frequent words.
//
// The first fetch error ends the crawl. In that case the returned Result
// holds the statistics gathered so far and no words.
func (c *Controller) Crawl(ctx context.Context, seed string) (*Result, error) {
	if _, err := ValidateSeed(seed); err != nil {
		return nil, err
	}

	run := c.newRun(seed)
	for run.state != StateDone {
		if err := ctx.Err(); err != nil {
			return run.result(nil), err
		}
		if err := run.step(ctx); err != nil {
			c.logger.Warn("crawl aborted", "seed", seed, "url", run.current, "error", err)
			return run.result(nil), err
		}
	}

	c.logger.Debug("crawl finished",
		"seed", seed,
		"pages_crawled", run.pages,
		"pages_skipped", run.skipped,
		"visited", len(run.visited),
		"distinct_words", run.freq.Len(),
	)
	return run.result(TopK(run.freq, c.topN)), nil
}

// crawlRun is the state of one crawl.
type crawlRun struct {
	c        *Controller
	state    State
	frontier []string
	visited  map[string]struct{}
	freq     *Frequencies
	pages    int
	skipped  int
	current  string
}

func (c *Controller) newRun(seed string) *crawlRun {
	return &crawlRun{
		c:        c,
		state:    StateRunning,
		frontier: []string{seed},
		visited:  map[string]struct{}{seed: {}},
		freq:     NewFrequencies(),
	}
}

// step performs one transition of the state machine.
func (r *crawlRun) step(ctx context.Context) error {
	switch r.state {
	case StateDone:
		return nil
	case StateDraining:
		r.frontier = nil
		r.state = StateDone
		return nil
	}

	if len(r.frontier) == 0 {
		r.state = StateDone
		return nil
	}

	u := r.frontier[0]
	r.frontier = r.frontier[1:]
	r.current = u

	head, err := r.c.fetcher.Fetch(ctx, u, http.MethodHead)
	if err != nil {
		return err
	}
	if !head.IsHTML() {
		r.skipped++
		r.c.logger.Debug("skipping non-HTML page", "url", u, "content_type", head.ContentType())
		r.notify(PageEvent{URL: u, Skipped: true, ContentType: head.ContentType()})
		return nil
	}

	page, err := r.c.fetcher.Fetch(ctx, u, http.MethodGet)
	if err != nil {
		return err
	}

	scanner, err := NewScanner(u)
	if err != nil {
		return err
	}
	scan := scanner.Scan(page.Reader())
	r.freq = Accumulate(r.freq, scan.Text, r.c.minWordLength)
	r.pages++
	r.c.logger.Debug("processed page", "url", u, "status", page.StatusCode, "links", len(scan.Links))

	queued := 0
	if r.pages >= r.c.limit {
		r.c.logger.Debug("page limit reached", "limit", r.c.limit, "dropped", len(r.frontier))
		r.frontier = nil
		r.state = StateDraining
	} else {
		for _, link := range scan.Links {
			if _, seen := r.visited[link]; seen {
				continue
			}
			r.visited[link] = struct{}{}
			r.frontier = append(r.frontier, link)
			queued++
		}
	}

	r.notify(PageEvent{
		URL:          u,
		ContentType:  head.ContentType(),
		LinksFound:   len(scan.Links),
		LinksQueued:  queued,
		PagesCrawled: r.pages,
	})
	return nil
}

func (r *crawlRun) notify(ev PageEvent) {
	if r.c.onPage == nil {
		return
	}
	ev.PagesCrawled = r.pages
	ev.Frontier = len(r.frontier)
	r.c.onPage(ev)
}

func (r *crawlRun) result(words []model.WordFrequency) *Result {
	if words == nil {
		words = []model.WordFrequency{}
	}
	return &Result{
		TopWords:     words,
		PagesCrawled: r.pages,
		PagesSkipped: r.skipped,
		Visited:      len(r.visited),
	}
}
