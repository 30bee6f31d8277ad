package fetch

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
)

// Response is a fully buffered HTTP response.
type Response struct {
	// StatusCode is the HTTP status code. It is informational only.
	StatusCode int

	// Header holds the response headers. Content-Encoding is removed once the
	// body has been decoded.
	Header http.Header

	// Body is the decoded body. It is empty for HEAD requests.
	Body []byte
}

// ContentType returns the Content-Type header, or "" if it is missing.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// IsHTML reports whether the Content-Type header starts with "text/html".
// A missing header is not HTML.
func (r *Response) IsHTML() bool {
	return strings.HasPrefix(r.ContentType(), "text/html")
}

// Reader returns the body converted to UTF-8.
// The charset comes from the Content-Type header, a <meta> tag or content
// sniffing. If no converter can be built the raw body is returned.
func (r *Response) Reader() io.Reader {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.ContentType())
	if err != nil {
		return bytes.NewReader(r.Body)
	}
	return reader
}

// Text returns the body converted to UTF-8.
func (r *Response) Text() string {
	b, err := io.ReadAll(r.Reader())
	if err != nil {
		return string(r.Body)
	}
	return string(b)
}
