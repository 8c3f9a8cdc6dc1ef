package quote

import "errors"

// Pipeline outcomes surfaced to the boundary layer. Handlers map these to
// status codes; everything else is treated as an internal failure.
var (
	// ErrInvalidInput marks malformed or out-of-range caller parameters.
	// Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the mandatory upstream reported no data for a
	// well-formed symbol. Deliberately not cached so a later request can
	// succeed once upstream data appears.
	ErrNotFound = errors.New("data not found")

	// ErrUpstreamUnavailable covers transport failures, timeouts and
	// malformed upstream payloads. Terminal for the current request.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
