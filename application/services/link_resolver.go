package services

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"refgraph-backend/domain/core/aggregates"
	"refgraph-backend/domain/core/entities"
	"refgraph-backend/domain/core/valueobjects"
)

// LinkResolver derives the directed edge set once all levels are loaded.
// Edge emission is idempotent: the aggregate drops duplicates, self-loops,
// and pairs touching ids that never made it into the node set.
type LinkResolver struct {
	logger *zap.Logger
}

// NewLinkResolver creates a link resolver.
func NewLinkResolver(logger *zap.Logger) *LinkResolver {
	return &LinkResolver{logger: logger}
}

// Resolve emits edges for the union of the seed rows and every article
// loaded during expansion, then runs the crossref pass over the seed
// rows' raw metadata.
func (r *LinkResolver) Resolve(graph *aggregates.CitationGraph, rows []*entities.ArticleRow, loaded []*entities.Article) {
	emitted := 0
	for _, row := range rows {
		emitted += r.resolveArticle(graph, &row.Article)
	}
	for _, article := range loaded {
		emitted += r.resolveArticle(graph, article)
	}
	crossref := 0
	for _, row := range rows {
		crossref += r.resolveCrossref(graph, &row.Article)
	}

	r.logger.Debug("links resolved",
		zap.Int("identifier_edges", emitted),
		zap.Int("crossref_edges", crossref),
		zap.Int("total_edges", graph.EdgeCount()),
	)
}

// sourceNodeID locates the node representing a loaded article. The
// storage id is authoritative; the identifier index covers rows that were
// deduplicated onto another row's node. DOI and PMID are both nullable,
// so an identifier-less article is still reachable through its id.
func sourceNodeID(graph *aggregates.CitationGraph, a *entities.Article) (string, bool) {
	id := strconv.FormatInt(a.ID, 10)
	if _, ok := graph.Node(id); ok {
		return id, true
	}
	return graph.Resolve(a.DOI, a.PMID)
}

// resolveArticle emits "article cites reference" and "citer cites
// article" edges for every identifier that resolves to a known node.
func (r *LinkResolver) resolveArticle(graph *aggregates.CitationGraph, a *entities.Article) int {
	sourceID, ok := sourceNodeID(graph, a)
	if !ok {
		return 0
	}

	emitted := 0
	for _, ref := range a.ReferenceIDs() {
		if targetID, ok := graph.ResolveExternalID(ref); ok {
			if graph.AddEdge(sourceID, targetID) {
				emitted++
			}
		}
	}
	for _, citing := range a.CitingIDs() {
		if citerID, ok := graph.ResolveExternalID(citing); ok {
			if graph.AddEdge(citerID, sourceID) {
				emitted++
			}
		}
	}
	return emitted
}

// crossrefMetadata is the slice of the raw provenance metadata the
// resolver cares about: an embedded structured reference list.
type crossrefMetadata struct {
	Reference []crossrefReference `json:"reference"`
}

type crossrefReference struct {
	DOI          string `json:"DOI"`
	Unstructured string `json:"unstructured"`
}

// resolveCrossref scans a seed article's embedded reference list for DOIs
// and emits the edges they resolve to. A DOI is extracted from
// unstructured citation text as a last resort.
func (r *LinkResolver) resolveCrossref(graph *aggregates.CitationGraph, a *entities.Article) int {
	if len(a.RawMetadata) == 0 {
		return 0
	}
	sourceID, ok := sourceNodeID(graph, a)
	if !ok {
		return 0
	}

	var meta crossrefMetadata
	if err := json.Unmarshal(a.RawMetadata, &meta); err != nil {
		// Provenance metadata is free-form; unparseable payloads are
		// simply skipped.
		return 0
	}

	emitted := 0
	for _, ref := range meta.Reference {
		doi := valueobjects.NormalizeDOI(ref.DOI)
		if doi == "" {
			doi = valueobjects.ExtractDOI(ref.Unstructured)
		}
		if doi == "" {
			continue
		}
		if targetID, ok := graph.Resolve(doi, ""); ok {
			if graph.AddEdge(sourceID, targetID) {
				emitted++
			}
		}
	}
	return emitted
}
