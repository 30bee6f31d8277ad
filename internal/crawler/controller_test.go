package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wordscan/internal/fetch"
	"github.com/nao1215/wordscan/internal/model"
)

// fakePage is one URL served by fakeFetcher.
type fakePage struct {
	contentType string
	body        string
	getErr      error
}

// fakeFetcher serves pages from memory and records every call.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fakePage
	calls []string
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL, method string) (*fetch.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, method+" "+rawURL)
	page, ok := f.pages[rawURL]
	if !ok {
		return &fetch.Response{StatusCode: http.StatusNotFound, Header: http.Header{"Content-Type": []string{"text/plain"}}}, nil
	}
	if method == http.MethodGet && page.getErr != nil {
		return nil, page.getErr
	}

	resp := &fetch.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	if page.contentType != "" {
		resp.Header.Set("Content-Type", page.contentType)
	}
	if method == http.MethodGet {
		resp.Body = []byte(page.body)
	}
	return resp, nil
}

func (f *fakeFetcher) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, call)
}

func htmlPage(body string) fakePage {
	return fakePage{contentType: "text/html; charset=utf-8", body: "<html><body>" + body + "</body></html>"}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testingSite has three interlinked pages containing "testing" 2, 3 and 5 times.
func testingSite() map[string]fakePage {
	return map[string]fakePage{
		"http://example.com": htmlPage(`<p>testing testing</p><a href="/page2">two</a><a href="/page3">three</a>`),
		"http://example.com/page2": htmlPage(
			`<p>testing testing testing</p><a href="/page3">three</a><a href="http://example.com/page2#top">self</a>`),
		"http://example.com/page3": htmlPage(
			`<p>testing testing testing testing testing</p><a href="/page2?from=3">two</a><a href="https://other.org/">away</a>`),
	}
}

// TestValidateSeed tests seed validation.
func TestValidateSeed(t *testing.T) {
	t.Parallel()

	valid := []string{"http://example.com", "https://example.com:8443/path?q=1", "http://127.0.0.1:8080"}
	for _, raw := range valid {
		if _, err := ValidateSeed(raw); err != nil {
			t.Errorf("ValidateSeed(%q): unexpected error %v", raw, err)
		}
	}

	invalid := []string{"", "example.com", "//example.com", "http://", "localhost:8080", "/path", "%zz"}
	for _, raw := range invalid {
		_, err := ValidateSeed(raw)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ValidateSeed(%q): expected ErrInvalidInput, got %v", raw, err)
		}
	}

	if ErrInvalidInput.Error() != "Please provide a url with a protocol and host" {
		t.Errorf("unexpected message %q", ErrInvalidInput.Error())
	}
}

// TestController_Crawl tests whole crawls against in-memory sites.
func TestController_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("counts words across interlinked pages", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(testingSite())
		c := NewController(f, WithLimit(30), WithTopN(1), WithLogger(quietLogger()))

		result, err := c.Crawl(context.Background(), "http://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []model.WordFrequency{{Word: "testing", Frequency: 10}}
		if !slices.Equal(result.TopWords, want) {
			t.Errorf("TopWords = %v, expected %v", result.TopWords, want)
		}
		if result.PagesCrawled != 3 {
			t.Errorf("expected 3 pages, got %d", result.PagesCrawled)
		}
		if result.Visited != 3 {
			t.Errorf("expected 3 visited URLs, got %d", result.Visited)
		}
	})

	t.Run("invalid seed never fetches", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(nil)
		_, err := NewController(f).Crawl(context.Background(), "example.com")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if len(f.calls) != 0 {
			t.Errorf("expected no fetches, got %v", f.calls)
		}
	})

	t.Run("non-HTML pages are skipped", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string]fakePage{
			"http://a.com/":         htmlPage(`<p>welcome visitor</p><a href="/logo.png">logo</a><a href="/about">about</a>`),
			"http://a.com/logo.png": {contentType: "image/png", body: "welcome welcome welcome"},
			"http://a.com/about":    htmlPage(`<p>about visitor</p>`),
		})
		var events []PageEvent
		c := NewController(f, WithLogger(quietLogger()), WithPageHook(func(ev PageEvent) {
			events = append(events, ev)
		}))

		result, err := c.Crawl(context.Background(), "http://a.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.called("GET http://a.com/logo.png") {
			t.Error("expected no GET for image/png")
		}
		if result.PagesCrawled != 2 || result.PagesSkipped != 1 {
			t.Errorf("expected 2 crawled and 1 skipped, got %d and %d", result.PagesCrawled, result.PagesSkipped)
		}
		for _, w := range result.TopWords {
			if w.Word == "welcome" && w.Frequency != 1 {
				t.Errorf("skipped page contributed to counts: %v", w)
			}
		}
		if len(events) != 3 || !events[1].Skipped || events[1].URL != "http://a.com/logo.png" {
			t.Errorf("unexpected page events: %+v", events)
		}
	})

	t.Run("missing content type counts as not HTML", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string]fakePage{
			"http://a.com/": {body: "<p>invisible</p>"},
		})
		result, err := NewController(f, WithLogger(quietLogger())).Crawl(context.Background(), "http://a.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesCrawled != 0 || result.PagesSkipped != 1 {
			t.Errorf("unexpected stats: %+v", result)
		}
		if f.count(http.MethodGet) != 0 {
			t.Error("expected no GET")
		}
	})

	t.Run("stops at the page limit", func(t *testing.T) {
		t.Parallel()

		pages := map[string]fakePage{}
		for i := range 10 {
			next := fmt.Sprintf(`<a href="/p%d">next</a><a href="/p%d">skip</a>`, i+1, i+2)
			pages[fmt.Sprintf("http://a.com/p%d", i)] = htmlPage("<p>content</p>" + next)
		}
		f := newFakeFetcher(pages)

		result, err := NewController(f, WithLimit(4), WithLogger(quietLogger())).Crawl(context.Background(), "http://a.com/p0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesCrawled != 4 {
			t.Errorf("expected 4 pages, got %d", result.PagesCrawled)
		}
		if got := f.count(http.MethodGet); got != 4 {
			t.Errorf("expected 4 GETs, got %d", got)
		}
		if got := f.count(http.MethodHead); got != 4 {
			t.Errorf("expected no HEAD after the limit, got %d", got)
		}
	})

	t.Run("each URL is fetched once", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string]fakePage{
			"http://a.com/":  htmlPage(`<a href="/x">x</a><a href="/y">y</a><a href="/x">x</a><a href="/">home</a>`),
			"http://a.com/x": htmlPage(`<a href="/y">y</a><a href="/">home</a><a href="/z">z</a>`),
			"http://a.com/y": htmlPage(`<a href="/x">x</a><a href="/z">z</a>`),
			"http://a.com/z": htmlPage(`<a href="/">home</a>`),
		})

		result, err := NewController(f, WithLogger(quietLogger())).Crawl(context.Background(), "http://a.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen := map[string]int{}
		for _, call := range f.calls {
			seen[call]++
		}
		for call, n := range seen {
			if n != 1 {
				t.Errorf("%s issued %d times", call, n)
			}
		}
		// distinct discovered links are /, /x, /y, /z
		if result.Visited != 4 {
			t.Errorf("expected 4 visited URLs, got %d", result.Visited)
		}
	})

	t.Run("fetch failure aborts the crawl", func(t *testing.T) {
		t.Parallel()

		site := testingSite()
		broken := site["http://example.com/page2"]
		broken.getErr = &fetch.NetworkError{URL: "http://example.com/page2", Method: http.MethodGet, Err: errors.New("connection reset")}
		site["http://example.com/page2"] = broken

		next := newFakeFetcher(site)
		f := fetch.NewRetryingFetcher(next,
			fetch.WithSleep(func(context.Context, time.Duration) error { return nil }),
			fetch.WithRetryLogger(quietLogger()),
		)

		result, err := NewController(f, WithLogger(quietLogger())).Crawl(context.Background(), "http://example.com")
		if !errors.Is(err, fetch.ErrRetriesExhausted) {
			t.Fatalf("expected ErrRetriesExhausted, got %v", err)
		}
		if got := next.count(http.MethodGet); got != 1+3 {
			t.Errorf("expected the seed GET plus 3 attempts, got %d", got)
		}
		if next.called("HEAD http://example.com/page3") {
			t.Error("crawl continued after a failure")
		}
		if result == nil || result.PagesCrawled != 1 || len(result.TopWords) != 0 {
			t.Errorf("unexpected partial result: %+v", result)
		}
	})

	t.Run("protocol error aborts without retry", func(t *testing.T) {
		t.Parallel()

		next := newFakeFetcher(nil)
		f := fetch.NewRetryingFetcher(fetchFunc(func(ctx context.Context, rawURL, method string) (*fetch.Response, error) {
			_, _ = next.Fetch(ctx, rawURL, method)
			return nil, &fetch.ProtocolError{URL: rawURL, Scheme: "gopher"}
		}))

		_, err := NewController(f, WithLogger(quietLogger())).Crawl(context.Background(), "gopher://a.com/")
		if !errors.Is(err, fetch.ErrUnsupportedProtocol) {
			t.Fatalf("expected ErrUnsupportedProtocol, got %v", err)
		}
		if len(next.calls) != 1 {
			t.Errorf("expected a single attempt, got %v", next.calls)
		}
	})

	t.Run("cancelled context stops between pages", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		f := newFakeFetcher(testingSite())
		c := NewController(f, WithLogger(quietLogger()), WithPageHook(func(PageEvent) { cancel() }))

		result, err := c.Crawl(ctx, "http://example.com")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.PagesCrawled != 1 {
			t.Errorf("expected 1 page before cancellation, got %d", result.PagesCrawled)
		}
	})
}

// fetchFunc adapts a function to fetch.Fetcher.
type fetchFunc func(ctx context.Context, rawURL, method string) (*fetch.Response, error)

func (f fetchFunc) Fetch(ctx context.Context, rawURL, method string) (*fetch.Response, error) {
	return f(ctx, rawURL, method)
}

// TestCrawlRun_Step tests the state machine one transition at a time.
func TestCrawlRun_Step(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fakePage{
		"http://a.com/":  htmlPage(`<a href="/b">b</a><a href="/c">c</a>`),
		"http://a.com/b": htmlPage(`<p>bravo</p>`),
	})
	c := NewController(f, WithLimit(2), WithLogger(quietLogger()))
	run := c.newRun("http://a.com/")
	ctx := context.Background()

	if run.state != StateRunning {
		t.Fatalf("initial state = %v", run.state)
	}

	if err := run.step(ctx); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if run.state != StateRunning || run.pages != 1 || len(run.frontier) != 2 {
		t.Fatalf("after step 1: state=%v pages=%d frontier=%v", run.state, run.pages, run.frontier)
	}

	if err := run.step(ctx); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if run.state != StateDraining || run.pages != 2 || len(run.frontier) != 0 {
		t.Fatalf("after step 2: state=%v pages=%d frontier=%v", run.state, run.pages, run.frontier)
	}

	if err := run.step(ctx); err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if run.state != StateDone {
		t.Fatalf("after step 3: state=%v", run.state)
	}

	if f.called("HEAD http://a.com/c") {
		t.Error("URL fetched after the limit was reached")
	}
	if StateDraining.String() != "DRAINING" {
		t.Errorf("unexpected state name %q", StateDraining.String())
	}
}

// TestController_CrawlHTTP crawls a real local server through the default fetchers.
func TestController_CrawlHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<p>testing testing</p><a href="/two">2</a><a href="/three">3</a><a href="/doc.pdf">pdf</a>`)
	})
	mux.HandleFunc("/two", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<p>testing testing testing</p><a href="/three">3</a>`)
	})
	mux.HandleFunc("/three", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<p>testing testing testing testing testing</p><a href="/">home</a>`)
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected %s for pdf", r.Method)
		}
		w.Header().Set("Content-Type", "application/pdf")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := fetch.NewRetryingFetcher(fetch.NewHTTPFetcher(), fetch.WithRetryLogger(quietLogger()))
	c := NewController(f, WithTopN(1), WithLogger(quietLogger()))

	result, err := c.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.WordFrequency{{Word: "testing", Frequency: 10}}
	if !slices.Equal(result.TopWords, want) {
		t.Errorf("TopWords = %v, expected %v", result.TopWords, want)
	}
	if result.PagesSkipped != 1 {
		t.Errorf("expected the pdf to be skipped, got %d", result.PagesSkipped)
	}
}
