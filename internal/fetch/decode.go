package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is sent with every request. Each listed coding is handled by decodeBody.
const acceptEncoding = "gzip, deflate, br"

// decodeBody undoes the Content-Encoding of a buffered body.
// Unknown codings are returned unchanged.
//
// When maxSize is positive, decoding stops as soon as the output exceeds
// maxSize and ErrBodyTooLarge is returned.
func decodeBody(body []byte, contentEncoding string, maxSize int64) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}

	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrDecode, err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		rc := newDeflateReader(body)
		defer rc.Close()
		reader = rc
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	default:
		return body, nil
	}

	if maxSize > 0 {
		reader = io.LimitReader(reader, maxSize+1)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, contentEncoding, err)
	}
	if maxSize > 0 && int64(len(decoded)) > maxSize {
		return nil, ErrBodyTooLarge
	}
	return decoded, nil
}

// newDeflateReader reads the "deflate" coding, which is zlib-wrapped data.
// Some servers send raw DEFLATE instead; those bodies are read without the
// zlib header.
func newDeflateReader(body []byte) io.ReadCloser {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		return zr
	}
	return flate.NewReader(bytes.NewReader(body))
}
