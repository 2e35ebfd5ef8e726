package queries

import (
	"encoding/json"
	"errors"

	"refgraph-backend/application/ports"
	"refgraph-backend/domain/core/aggregates"
)

// Hard bounds on the request budget parameters.
const (
	MinDepth = 1
	MaxDepth = 3

	MinLinksPerNode     = 1
	MaxLinksPerNode     = 50
	DefaultLinksPerNode = 10

	MinTotalNodes     = 10
	MaxTotalNodes     = 2000
	DefaultTotalNodes = 500
)

// GetCitationGraphQuery describes one graph construction request. Raw
// parameter values go in as parsed from the query string; Normalize
// clamps and defaults them and never fails.
type GetCitationGraphQuery struct {
	ProjectID string `json:"project_id"`

	Filter          string `json:"filter"`
	Depth           int    `json:"depth"`
	YearFrom        *int   `json:"year_from,omitempty"`
	YearTo          *int   `json:"year_to,omitempty"`
	MinStatsQuality *int   `json:"min_stats_quality,omitempty"`

	// SourceQueriesJSON is a JSON-encoded string list; invalid JSON is
	// treated as an empty list, non-fatal.
	SourceQueriesJSON string `json:"source_queries,omitempty"`

	MaxLinksPerNode int `json:"max_links_per_node"`
	MaxTotalNodes   int `json:"max_total_nodes"`

	sourceQueries []string
	normalized    bool
}

// Normalize clamps every parameter into its valid range and decodes the
// source-query list. It corrects rather than rejects: a malformed request
// still produces a usable one.
func (q *GetCitationGraphQuery) Normalize() {
	q.Depth = clamp(q.Depth, MinDepth, MaxDepth)
	q.MaxLinksPerNode = clampDefault(q.MaxLinksPerNode, MinLinksPerNode, MaxLinksPerNode, DefaultLinksPerNode)
	q.MaxTotalNodes = clampDefault(q.MaxTotalNodes, MinTotalNodes, MaxTotalNodes, DefaultTotalNodes)

	switch ports.StatusFilter(q.Filter) {
	case ports.FilterSelected, ports.FilterExcluded:
	default:
		q.Filter = string(ports.FilterAll)
	}

	if q.YearFrom != nil && q.YearTo != nil && *q.YearFrom > *q.YearTo {
		q.YearFrom, q.YearTo = q.YearTo, q.YearFrom
	}

	q.sourceQueries = nil
	if q.SourceQueriesJSON != "" {
		var list []string
		if err := json.Unmarshal([]byte(q.SourceQueriesJSON), &list); err == nil {
			q.sourceQueries = list
		}
	}
	q.normalized = true
}

// Validate implements bus.Query. Only the project id is a hard
// requirement; everything else is corrected by Normalize.
func (q GetCitationGraphQuery) Validate() error {
	if q.ProjectID == "" {
		return errors.New("projectID is required")
	}
	return nil
}

// StatusFilter returns the normalized membership filter.
func (q *GetCitationGraphQuery) StatusFilter() ports.StatusFilter {
	return ports.StatusFilter(q.Filter)
}

// SourceQueries returns the decoded source-query list.
func (q *GetCitationGraphQuery) SourceQueries() []string {
	return q.sourceQueries
}

// QueryOptions projects the request constraints into repository options.
func (q *GetCitationGraphQuery) QueryOptions() ports.ArticleQueryOptions {
	return ports.ArticleQueryOptions{
		YearFrom:        q.YearFrom,
		YearTo:          q.YearTo,
		MinStatsQuality: q.MinStatsQuality,
		SourceQueries:   q.sourceQueries,
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDefault(v, min, max, def int) int {
	if v == 0 {
		return def
	}
	return clamp(v, min, max)
}

// AppliedLimits echoes the clamped request parameters back to the client.
type AppliedLimits struct {
	Filter          string `json:"filter"`
	Depth           int    `json:"depth"`
	MaxLinksPerNode int    `json:"max_links_per_node"`
	MaxTotalNodes   int    `json:"max_total_nodes"`
}

// GraphFacets lists the filter values available for the project.
type GraphFacets struct {
	// SourceQueries is only populated when the storage schema carries
	// the source-query column.
	SourceQueries []string `json:"source_queries,omitempty"`
	YearMin       *int     `json:"year_min,omitempty"`
	YearMax       *int     `json:"year_max,omitempty"`
}

// EnrichmentInfo reports the outcome of the best-effort placeholder
// enrichment, surfaced for structured logging instead of being swallowed.
type EnrichmentInfo struct {
	Updated int  `json:"updated"`
	Failed  bool `json:"failed"`
}

// GetCitationGraphResult is the serialized graph.
type GetCitationGraphResult struct {
	Nodes []*aggregates.Node `json:"nodes"`
	Edges []aggregates.Edge  `json:"edges"`

	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	LevelCounts map[int]int    `json:"level_counts"`
	Facets      GraphFacets    `json:"facets"`
	Limits      AppliedLimits  `json:"limits"`
	Enrichment  EnrichmentInfo `json:"enrichment"`
}
