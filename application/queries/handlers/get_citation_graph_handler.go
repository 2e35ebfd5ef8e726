package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"refgraph-backend/application/ports"
	"refgraph-backend/application/queries"
	"refgraph-backend/application/services"
	"refgraph-backend/domain/core/aggregates"
	"refgraph-backend/domain/core/entities"
	apperrors "refgraph-backend/pkg/errors"
	"refgraph-backend/pkg/observability"
)

// GetCitationGraphHandler builds the citation graph for one request. The
// pipeline is: normalize → seed load → level expansion → link resolution
// → placeholder enrichment → assembly. Only storage failures are fatal;
// everything else degrades.
type GetCitationGraphHandler struct {
	articles     ports.ArticleRepository
	caps         ports.StorageCapabilities
	expander     *services.GraphExpander
	linkResolver *services.LinkResolver
	enricher     *services.Enricher
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewGetCitationGraphHandler creates the graph query handler.
func NewGetCitationGraphHandler(
	articles ports.ArticleRepository,
	lookup ports.BibliographicLookup,
	caps ports.StorageCapabilities,
	enrichTimeout time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *GetCitationGraphHandler {
	return &GetCitationGraphHandler{
		articles:     articles,
		caps:         caps,
		expander:     services.NewGraphExpander(articles, logger),
		linkResolver: services.NewLinkResolver(logger),
		enricher:     services.NewEnricher(lookup, enrichTimeout, logger),
		metrics:      metrics,
		logger:       logger,
	}
}

// Handle executes the graph construction query.
func (h *GetCitationGraphHandler) Handle(ctx context.Context, query queries.GetCitationGraphQuery) (*queries.GetCitationGraphResult, error) {
	if err := query.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	query.Normalize()

	buildID := uuid.NewString()
	start := time.Now()
	timer := h.metrics.StartBuildTimer()
	defer timer.Stop()

	opts := query.QueryOptions()
	if !h.caps.SourceQueryColumn {
		opts.SourceQueries = nil
	}

	rows, err := h.articles.ListProjectArticles(ctx, query.ProjectID, query.StatusFilter(), opts)
	if err != nil {
		// Storage unavailability is the one fatal condition: a partial
		// graph must never be presented as complete.
		h.metrics.BuildFailed()
		return nil, apperrors.NewDatabaseError("list project articles", err)
	}

	graph := aggregates.NewCitationGraph(query.MaxTotalNodes)

	loaded, err := h.expander.Expand(ctx, graph, rows, &query)
	if err != nil {
		h.metrics.BuildFailed()
		return nil, apperrors.NewDatabaseError("resolve external identifiers", err)
	}

	h.linkResolver.Resolve(graph, rows, loaded)

	enrichment := h.enricher.Enrich(ctx, graph)
	if enrichment.Failed {
		h.metrics.EnrichmentFailed()
	}

	if err := ctx.Err(); err != nil {
		// The caller is gone; a partially built graph is discarded,
		// never returned.
		return nil, apperrors.NewTimeoutError("citation graph build").WithCause(err)
	}

	result := h.assemble(graph, rows, &query, enrichment)
	h.metrics.BuildCompleted(graph.NodeCount(), graph.EdgeCount())

	h.logger.Info("citation graph built",
		zap.String("buildID", buildID),
		zap.String("projectID", query.ProjectID),
		zap.Int("depth", query.Depth),
		zap.Int("nodes", result.NodeCount),
		zap.Int("edges", result.EdgeCount),
		zap.Int("enriched", enrichment.Updated),
		zap.Bool("enrichmentFailed", enrichment.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// assemble computes the counts, facets, and year range. Pure function of
// the already-built graph state; no further I/O.
func (h *GetCitationGraphHandler) assemble(graph *aggregates.CitationGraph, rows []*entities.ArticleRow, query *queries.GetCitationGraphQuery, enrichment services.EnrichmentResult) *queries.GetCitationGraphResult {
	nodes := graph.Nodes()
	edges := graph.Edges()
	if nodes == nil {
		nodes = []*aggregates.Node{}
	}
	if edges == nil {
		edges = []aggregates.Edge{}
	}

	facets := queries.GraphFacets{}
	if h.caps.SourceQueryColumn {
		seen := make(map[string]struct{})
		for _, row := range rows {
			if row.SourceQuery == "" {
				continue
			}
			if _, ok := seen[row.SourceQuery]; ok {
				continue
			}
			seen[row.SourceQuery] = struct{}{}
			facets.SourceQueries = append(facets.SourceQueries, row.SourceQuery)
		}
	}
	for _, row := range rows {
		if row.Year == nil {
			continue
		}
		year := *row.Year
		if facets.YearMin == nil || year < *facets.YearMin {
			y := year
			facets.YearMin = &y
		}
		if facets.YearMax == nil || year > *facets.YearMax {
			y := year
			facets.YearMax = &y
		}
	}

	return &queries.GetCitationGraphResult{
		Nodes:       nodes,
		Edges:       edges,
		NodeCount:   len(nodes),
		EdgeCount:   len(edges),
		LevelCounts: graph.LevelCounts(),
		Facets:      facets,
		Limits: queries.AppliedLimits{
			Filter:          query.Filter,
			Depth:           query.Depth,
			MaxLinksPerNode: query.MaxLinksPerNode,
			MaxTotalNodes:   query.MaxTotalNodes,
		},
		Enrichment: queries.EnrichmentInfo{
			Updated: enrichment.Updated,
			Failed:  enrichment.Failed,
		},
	}
}
