package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Scanner extracts links and text from pages of one URL.
//
// Design decision: We use the x/net/html tokenizer rather than building a
// DOM. One streaming pass collects both the text and the links, and a
// truncated or malformed page yields whatever was read before the error.
type Scanner struct {
	page   *url.URL
	origin string
}

// ScanResult is the output of a single scan.
type ScanResult struct {
	// Links are absolute same-domain URLs in document order.
	// Duplicates are kept.
	Links []string

	// Text is every text token, trimmed and followed by one space.
	Text string
}

// NewScanner creates a Scanner for the page at pageURL.
func NewScanner(pageURL string) (*Scanner, error) {
	u, err := ValidateSeed(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	origin := u.Scheme + "://"
	if u.User != nil {
		origin += u.User.String() + "@"
	}
	origin += u.Host

	return &Scanner{page: u, origin: origin}, nil
}

// Scan reads r once. It never fails: on malformed or truncated input it
// returns what it extracted before the tokenizer stopped.
func (s *Scanner) Scan(r io.Reader) *ScanResult {
	z := html.NewTokenizer(r)
	links := make([]string, 0)
	var text strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			return &ScanResult{Links: links, Text: text.String()}

		case html.TextToken:
			text.WriteString(strings.TrimSpace(string(z.Text())))
			text.WriteByte(' ')

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			if href, ok := hrefAttr(z); ok {
				if link, ok := s.resolve(href); ok {
					links = append(links, link)
				}
			}
		}
	}
}

// hrefAttr returns the first href attribute of the current tag.
func hrefAttr(z *html.Tokenizer) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

// resolve returns the absolute URL for href if it points to the page's domain.
//
// An href starting with "/" is always same-domain and its path is everything
// before the first '?' or '#'. Any other href must carry the page's scheme,
// host and port. Query and fragment are dropped in both cases.
func (s *Scanner) resolve(href string) (string, bool) {
	if strings.HasPrefix(href, "/") {
		if i := strings.IndexAny(href, "?#"); i >= 0 {
			href = href[:i]
		}
		return s.origin + escapePath(href), true
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !s.sameDomain(u) {
		return "", false
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return s.origin + path, true
}

func (s *Scanner) sameDomain(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, s.page.Scheme) &&
		strings.EqualFold(u.Host, s.page.Host) &&
		u.Port() == s.page.Port()
}

// escapePath percent-encodes a raw path while keeping existing escapes.
func escapePath(raw string) string {
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return (&url.URL{Path: unescaped, RawPath: raw}).EscapedPath()
}
