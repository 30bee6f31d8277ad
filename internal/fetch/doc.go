// Package fetch performs the HTTP requests of a crawl.
//
// HTTPFetcher issues exactly one request per call over a fresh connection,
// with a hard per-attempt timeout, and buffers the whole (decoded) body.
// RetryingFetcher wraps any Fetcher and retries network failures with
// exponential backoff.
//
// Error kinds:
//   - *ProtocolError: the URL scheme is not http or https (never retried)
//   - *NetworkError: DNS, connect, timeout or body read failure (retried)
//   - *RetriesExhaustedError: every attempt failed with a network error
//
// Status codes are never errors. Redirects are returned as is.
package fetch
