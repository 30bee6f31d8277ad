package crawler

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidInput is returned when a seed URL lacks a scheme or a host.
var ErrInvalidInput = errors.New("Please provide a url with a protocol and host") //nolint:staticcheck // user facing message

// ValidateSeed checks that raw is an absolute URL with a scheme and a host.
func ValidateSeed(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidInput
	}
	return u, nil
}
