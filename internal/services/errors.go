package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the failure taxonomy. Every error surfaced by the
// resolution engine wraps exactly one of these.
var (
	// ErrTransport marks a network-level failure with no HTTP response.
	ErrTransport = errors.New("transport failure")
	// ErrUpstream marks a non-2xx response from the external API.
	ErrUpstream = errors.New("upstream rejection")
	// ErrMalformed marks a 2xx response whose body could not be decoded,
	// including the literal "null" payload the catalog uses for "no data".
	ErrMalformed = errors.New("malformed response")
	// ErrNotFound marks a well-formed response with zero usable candidates.
	ErrNotFound = errors.New("no identity found")
	// ErrPrivateSource marks a bulk import that returned no data. The
	// external API does not distinguish private profiles from empty
	// libraries, so neither does this marker.
	ErrPrivateSource = errors.New("private or inaccessible source")
	// ErrConfiguration marks invalid load-time configuration such as a
	// malformed override table.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsMiss reports whether an error represents a confirmed "no data" outcome
// rather than an operational failure. Misses are cached and retried on the
// miss schedule; failures are not cached at all.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPrivateSource)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
