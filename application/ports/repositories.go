package ports

import (
	"context"

	"refgraph-backend/domain/core/entities"
)

// StatusFilter selects which project memberships feed level 1.
type StatusFilter string

const (
	// FilterAll excludes only deleted memberships.
	FilterAll StatusFilter = "all"
	// FilterSelected matches exactly the selected status.
	FilterSelected StatusFilter = "selected"
	// FilterExcluded matches exactly the excluded status.
	FilterExcluded StatusFilter = "excluded"
)

// ArticleQueryOptions carries the optional constraints shared by the seed
// query and the batch external-id lookup.
type ArticleQueryOptions struct {
	YearFrom        *int
	YearTo          *int
	MinStatsQuality *int

	// SourceQueries only applies to the seed query.
	SourceQueries []string
}

// Filtered reports whether a year or stats-quality constraint is active.
// When it is, a storage miss is ambiguous between "doesn't exist" and
// "filtered out", so the expander suppresses placeholder nodes.
func (o ArticleQueryOptions) Filtered() bool {
	return o.YearFrom != nil || o.YearTo != nil || o.MinStatsQuality != nil
}

// ArticleRepository is the read-only storage port. Implementations must
// match DOIs case-insensitively and PMIDs exactly, and must never return
// deleted memberships regardless of filter.
type ArticleRepository interface {
	// ListProjectArticles loads the level-1 rows for a project.
	ListProjectArticles(ctx context.Context, projectID string, filter StatusFilter, opts ArticleQueryOptions) ([]*entities.ArticleRow, error)

	// FindByExternalIDs resolves a batch of external identifiers (DOIs
	// or PMIDs) to articles already present in storage. May return fewer
	// articles than ids. SourceQueries in opts is ignored here.
	FindByExternalIDs(ctx context.Context, ids []string, opts ArticleQueryOptions) ([]*entities.Article, error)
}

// StorageCapabilities describes optional schema features, resolved once
// at startup instead of probed per request.
type StorageCapabilities struct {
	// CitationColumns is false when the schema lacks the
	// reference/citing identifier columns; the expander then works with
	// empty identifier sets.
	CitationColumns bool

	// SourceQueryColumn gates the source-query filter and facet.
	SourceQueryColumn bool
}

// PartialArticle is a best-effort bibliographic record from the external
// lookup service.
type PartialArticle struct {
	PMID    string
	DOI     string
	Title   string
	Year    *int
	Authors []string
}

// BibliographicLookup is the external record fetch service. Best effort:
// it may return fewer results than requested or fail entirely; callers
// must treat failure as non-fatal.
type BibliographicLookup interface {
	FetchByIDs(ctx context.Context, pmids []string) ([]PartialArticle, error)
}
