package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one seed URL")

	// ErrInvalidLimit is returned when the page limit is below 1.
	ErrInvalidLimit = errors.New("invalid page limit: must be at least 1")

	// ErrInvalidTopN is returned when the number of reported words is below 1.
	ErrInvalidTopN = errors.New("invalid top word count: must be at least 1")

	// ErrInvalidMinWordLength is returned when the minimum word length is below 1.
	ErrInvalidMinWordLength = errors.New("invalid minimum word length: must be at least 1")

	// ErrInvalidRetries is returned when the number of attempts is below 1.
	ErrInvalidRetries = errors.New("invalid retry count: must be at least 1")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBackoff is returned when the backoff base is negative.
	ErrInvalidBackoff = errors.New("invalid backoff: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for no limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is below 1.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be at least 1")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
