// internal/models/search.go
package models

// SourceKind labels where a search result came from.
type SourceKind string

const (
	SourceInternal SourceKind = "internal"
	SourceExternal SourceKind = "external"
	SourceMixed    SourceKind = "mixed"
)

// SearchResult is the source-labelled outcome of a hybrid search.
type SearchResult struct {
	Query         string       `json:"query"`
	Source        SourceKind   `json:"source"`
	Internal      []Business   `json:"internal"`
	External      []CacheEntry `json:"external"`
	InternalCount int          `json:"internalCount"`
	ExternalCount int          `json:"externalCount"`
	FromCache     bool         `json:"fromCache"`
}

// ClassifySource applies the labelling rule: internal when nothing external was
// found, external when only external rows exist, mixed otherwise.
func ClassifySource(internalCount, externalCount int) SourceKind {
	switch {
	case externalCount == 0:
		return SourceInternal
	case internalCount == 0:
		return SourceExternal
	default:
		return SourceMixed
	}
}

// NewSearchResult builds a result with counts and source filled in.
func NewSearchResult(query string, internal []Business, external []CacheEntry, fromCache bool) *SearchResult {
	if internal == nil {
		internal = []Business{}
	}
	if external == nil {
		external = []CacheEntry{}
	}
	return &SearchResult{
		Query:         query,
		Source:        ClassifySource(len(internal), len(external)),
		Internal:      internal,
		External:      external,
		InternalCount: len(internal),
		ExternalCount: len(external),
		FromCache:     fromCache,
	}
}

// Empty reports whether neither source returned anything.
func (r *SearchResult) Empty() bool {
	return r == nil || (r.InternalCount == 0 && r.ExternalCount == 0)
}
