package extractor

import (
	"fmt"
	"strings"
)

// Kind partitions every failure the extractor can surface. The API layer
// maps each kind to exactly one HTTP status.
type Kind int

const (
	// KindInvalidInput covers malformed or non-matching URLs, rejected
	// before the extraction tool is ever invoked.
	KindInvalidInput Kind = iota

	// KindNotFound covers videos that are missing, removed, or for which
	// the tool returned nothing.
	KindNotFound

	// KindAccessDenied covers private videos.
	KindAccessDenied

	// KindTool covers tool failures that matched no known category; the
	// tool's own message is surfaced to the caller.
	KindTool

	// KindInternal covers everything unexpected, including a download
	// that silently produced no file.
	KindInternal
)

// Error is the terminal failure for a single request. Detail is safe to
// interpolate into the response body; the raw tool text is embedded where
// the taxonomy calls for it.
type Error struct {
	Kind   Kind
	Detail string
}

func (err *Error) Error() string {
	return err.Detail
}

func newError(kind Kind, format string, interpolations ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, interpolations...)}
}

// classification maps a substring of the tool's failure output to an error
// kind and its user-facing message. The table is ordered and first-match
// wins, so more specific phrases must precede the broader ones they
// contain. Message-text sniffing is the only signal the tool exposes over
// its process boundary; keeping the table here means an upstream wording
// change is a one-line edit rather than a logic change.
type classification struct {
	substring string
	kind      Kind
	detail    string
}

var toolFailureTable = []classification{
	{"Private video", KindAccessDenied, "Video is private"},
	{"This video is not available", KindNotFound, "Video not available"},
	{"Video unavailable", KindNotFound, "Video not found or unavailable"},
	{"not available", KindNotFound, "Video not found or unavailable"},
}

// classifyToolFailure turns the tool's failure output into an Error using
// the classification table, falling back to the provided catch-all.
func classifyToolFailure(output string, fallback *Error) *Error {
	for _, c := range toolFailureTable {
		if strings.Contains(output, c.substring) {
			return &Error{Kind: c.kind, Detail: c.detail}
		}
	}

	return fallback
}
