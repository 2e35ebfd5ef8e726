package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"refgraph-backend/application/ports"
	"refgraph-backend/domain/core/aggregates"
)

// MaxEnrichmentBatch caps how many placeholder pmids go into the single
// external lookup call.
const MaxEnrichmentBatch = 150

// DefaultEnrichmentTimeout bounds the external call when the caller does
// not configure one.
const DefaultEnrichmentTimeout = 30 * time.Second

// EnrichmentResult reports the outcome of the best-effort enrichment so
// the caller layer can log it in a structured way.
type EnrichmentResult struct {
	Updated int
	Failed  bool
}

// Enricher opportunistically fills bibliographic detail into placeholder
// nodes from the external lookup. Failure is never fatal: the graph is
// returned with un-enriched placeholders.
type Enricher struct {
	lookup  ports.BibliographicLookup
	timeout time.Duration
	logger  *zap.Logger
}

// NewEnricher creates an enricher with a request-scoped timeout for the
// external call.
func NewEnricher(lookup ports.BibliographicLookup, timeout time.Duration, logger *zap.Logger) *Enricher {
	if timeout <= 0 {
		timeout = DefaultEnrichmentTimeout
	}
	return &Enricher{lookup: lookup, timeout: timeout, logger: logger}
}

// Enrich updates placeholder nodes in place. Unmatched placeholders are
// left as-is; a whole-batch failure or timeout degrades to "no
// enrichment".
func (e *Enricher) Enrich(ctx context.Context, graph *aggregates.CitationGraph) EnrichmentResult {
	placeholders := graph.Placeholders()
	if len(placeholders) == 0 {
		return EnrichmentResult{}
	}

	seen := make(map[string]struct{}, len(placeholders))
	pmids := make([]string, 0, len(placeholders))
	for _, node := range placeholders {
		if node.PMID == "" {
			continue
		}
		if _, ok := seen[node.PMID]; ok {
			continue
		}
		seen[node.PMID] = struct{}{}
		pmids = append(pmids, node.PMID)
		if len(pmids) >= MaxEnrichmentBatch {
			break
		}
	}
	if len(pmids) == 0 {
		return EnrichmentResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	records, err := e.lookup.FetchByIDs(ctx, pmids)
	if err != nil {
		e.logger.Warn("placeholder enrichment failed",
			zap.Int("pmids", len(pmids)),
			zap.Error(err),
		)
		return EnrichmentResult{Failed: true}
	}

	byPMID := make(map[string]ports.PartialArticle, len(records))
	for _, rec := range records {
		if rec.PMID != "" {
			byPMID[rec.PMID] = rec
		}
	}

	updated := 0
	for _, node := range placeholders {
		rec, ok := byPMID[node.PMID]
		if !ok {
			continue
		}
		if graph.EnrichPlaceholder(node.ID, rec.Title, rec.DOI, rec.Year, rec.Authors) {
			updated++
		}
	}

	e.logger.Debug("placeholders enriched",
		zap.Int("requested", len(pmids)),
		zap.Int("updated", updated),
	)
	return EnrichmentResult{Updated: updated}
}
