// Package osmerr defines the typed error taxonomy of spec.md §7: lookup
// failures and transport failures that halt the pipeline, distinguished
// from the geometry/classification anomalies that are merely logged.
package osmerr

import (
	"fmt"
	"strings"
)

// ErrMunicipalityNotFound indicates a municipality code or name query
// matched nothing.
type ErrMunicipalityNotFound struct {
	Query string
}

func (e *ErrMunicipalityNotFound) Error() string {
	return fmt.Sprintf("municipality not found: %q", e.Query)
}

// ErrAmbiguousMunicipality indicates a name query matched more than one
// municipality (spec.md §8 scenario 6).
type ErrAmbiguousMunicipality struct {
	Query   string
	Matches []string // "id name" pairs
}

func (e *ErrAmbiguousMunicipality) Error() string {
	return fmt.Sprintf("ambiguous municipality %q, matches: %s", e.Query, strings.Join(e.Matches, ", "))
}

// ErrUnknownCategory indicates the category argument did not prefix-match
// any of the seven known N50 categories.
type ErrUnknownCategory struct {
	Query string
	Known []string
}

func (e *ErrUnknownCategory) Error() string {
	return fmt.Sprintf("unknown category %q, expected one of: %s", e.Query, strings.Join(e.Known, ", "))
}

// ErrTransport wraps a failed outbound request with the service name for
// diagnostics.
type ErrTransport struct {
	Service string
	URL     string
	Cause   error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("%s request failed: %s: %v", e.Service, e.URL, e.Cause)
}

func (e *ErrTransport) Unwrap() error { return e.Cause }

// ErrInvalidRing indicates a polygon ring had fewer than 3 distinct points
// or failed to close (spec.md §4.1, §7.3) — logged and dropped, never
// fatal.
type ErrInvalidRing struct {
	FeatureID string
	Reason    string
}

func (e *ErrInvalidRing) Error() string {
	return fmt.Sprintf("invalid ring in feature %s: %s", e.FeatureID, e.Reason)
}
