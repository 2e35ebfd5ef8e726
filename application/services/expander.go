package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"refgraph-backend/application/ports"
	"refgraph-backend/application/queries"
	"refgraph-backend/domain/core/aggregates"
	"refgraph-backend/domain/core/entities"
)

// MaxRelatedCandidates bounds the level-3 ("related work") candidate set
// independently of the node budget.
const MaxRelatedCandidates = 200

// collectConcurrency bounds the read-only candidate-collection fan-out.
const collectConcurrency = 8

// GraphExpander runs the budget-constrained breadth expansion across
// graph levels. Levels are processed strictly in order 1, 2, 0, 3: each
// level's "already present" check depends on the identifier index state
// left by the previous ones, so reordering would break the
// at-most-one-node invariant.
type GraphExpander struct {
	articles ports.ArticleRepository
	logger   *zap.Logger
}

// NewGraphExpander creates a graph expander.
func NewGraphExpander(articles ports.ArticleRepository, logger *zap.Logger) *GraphExpander {
	return &GraphExpander{articles: articles, logger: logger}
}

// expansionContext threads the per-request expansion state through the
// level functions explicitly. A single goroutine owns all mutation of the
// graph; candidate collection may fan out read-only.
type expansionContext struct {
	graph *aggregates.CitationGraph

	maxLinksPerNode   int
	lookupOpts        ports.ArticleQueryOptions
	allowPlaceholders bool

	// loaded accumulates every article resolved from storage at levels
	// 0/2/3; the link resolver runs over it afterwards.
	loaded []*entities.Article

	// level2 keeps the articles resolved at level 2, the input of the
	// level-3 expansion.
	level2 []*entities.Article

	// level0Candidates is the deduplicated (pre-truncation) level-0
	// candidate set; level 3 must not re-introduce any of them.
	level0Candidates map[string]struct{}
}

// Expand builds the node set for the request. The seed rows have already
// been loaded; Expand inserts them as level 1 and then grows levels 2, 0,
// and 3 as permitted by depth and budget. It returns every article
// resolved from storage during expansion.
func (e *GraphExpander) Expand(ctx context.Context, graph *aggregates.CitationGraph, rows []*entities.ArticleRow, q *queries.GetCitationGraphQuery) ([]*entities.Article, error) {
	lookupOpts := ports.ArticleQueryOptions{
		YearFrom:        q.YearFrom,
		YearTo:          q.YearTo,
		MinStatsQuality: q.MinStatsQuality,
	}
	ec := &expansionContext{
		graph:             graph,
		maxLinksPerNode:   q.MaxLinksPerNode,
		lookupOpts:        lookupOpts,
		allowPlaceholders: !lookupOpts.Filtered(),
		level0Candidates:  make(map[string]struct{}),
	}

	e.expandLevel1(ec, rows)

	if q.Depth >= 2 {
		if err := e.expandLevel2(ctx, ec, rows); err != nil {
			return nil, err
		}
	}
	if q.Depth >= 3 {
		if err := e.expandLevel0(ctx, ec, rows); err != nil {
			return nil, err
		}
		if err := e.expandLevel3(ctx, ec); err != nil {
			return nil, err
		}
	}

	return ec.loaded, nil
}

// expandLevel1 inserts one node per seed row. The total budget applies
// even here: once the graph is full, remaining seeds are dropped.
func (e *GraphExpander) expandLevel1(ec *expansionContext, rows []*entities.ArticleRow) {
	for _, row := range rows {
		if ec.graph.Remaining() <= 0 {
			e.logger.Debug("node budget exhausted during seed insertion",
				zap.Int("seeds", len(rows)),
				zap.Int("inserted", ec.graph.NodeCount()),
			)
			return
		}
		ec.graph.AddArticle(&row.Article, 1, string(row.Status))
	}
}

// expandLevel2 grows the graph with articles the project references.
func (e *GraphExpander) expandLevel2(ctx context.Context, ec *expansionContext, rows []*entities.ArticleRow) error {
	candidates := e.collectCandidates(ctx, ec, rows, func(a *entities.Article) []string {
		return a.ReferenceIDs()
	})
	_, err := e.lookupAndInsert(ctx, ec, candidates, 2, aggregates.NodeStatusReference)
	return err
}

// expandLevel0 grows the graph with articles citing the project's work.
func (e *GraphExpander) expandLevel0(ctx context.Context, ec *expansionContext, rows []*entities.ArticleRow) error {
	candidates := e.collectCandidates(ctx, ec, rows, func(a *entities.Article) []string {
		return a.CitingIDs()
	})
	for _, id := range candidates {
		ec.level0Candidates[id] = struct{}{}
	}
	_, err := e.lookupAndInsert(ctx, ec, candidates, 0, aggregates.NodeStatusCiting)
	return err
}

// expandLevel3 grows the graph with "related work": articles citing the
// level-2 references, excluding anything already queued as a level-0
// candidate or already resolved.
func (e *GraphExpander) expandLevel3(ctx context.Context, ec *expansionContext) error {
	limit := MaxRelatedCandidates
	if remaining := ec.graph.Remaining(); remaining < limit {
		limit = remaining
	}
	if limit <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var candidates []string
	for _, article := range ec.level2 {
		for _, id := range article.CitingIDs() {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := ec.level0Candidates[id]; ok {
				continue
			}
			if _, ok := ec.graph.ResolveExternalID(id); ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, id)
			if len(candidates) >= limit {
				break
			}
		}
		if len(candidates) >= limit {
			break
		}
	}

	_, err := e.lookupAndInsert(ctx, ec, candidates, 3, aggregates.NodeStatusRelated)
	return err
}

// collectCandidates gathers unresolved external identifiers from the seed
// rows, at most maxLinksPerNode new candidates per article. The per-row
// scan fans out read-only; the merge that dedups across rows runs on the
// calling goroutine (single-writer rule).
func (e *GraphExpander) collectCandidates(ctx context.Context, ec *expansionContext, rows []*entities.ArticleRow, ids func(*entities.Article) []string) []string {
	perRow := make([][]string, len(rows))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(collectConcurrency)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			var picked []string
			for _, id := range ids(&row.Article) {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				if _, ok := ec.graph.ResolveExternalID(id); ok {
					continue
				}
				picked = append(picked, id)
				if len(picked) >= ec.maxLinksPerNode {
					break
				}
			}
			perRow[i] = picked
			return nil
		})
	}
	// Workers only read the graph and write disjoint slots; no error path.
	_ = g.Wait()

	seen := make(map[string]struct{})
	var merged []string
	for _, picked := range perRow {
		for _, id := range picked {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}

// lookupAndInsert resolves a candidate identifier batch against storage
// and turns the results into nodes. Candidates are truncated to the
// remaining budget before the lookup, never after, so lookup cost is
// bounded by the budget rather than the raw candidate volume. Misses
// become placeholder nodes unless a year/quality filter makes "not found"
// ambiguous.
func (e *GraphExpander) lookupAndInsert(ctx context.Context, ec *expansionContext, candidates []string, level int, status string) (int, error) {
	if remaining := ec.graph.Remaining(); len(candidates) > remaining {
		if remaining <= 0 {
			return 0, nil
		}
		candidates = candidates[:remaining]
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	found, err := e.articles.FindByExternalIDs(ctx, candidates, ec.lookupOpts)
	if err != nil {
		return 0, err
	}

	matched := make(map[string]struct{}, len(found))
	inserted := 0
	for _, article := range found {
		if article.PMID != "" {
			matched[article.PMID] = struct{}{}
		}
		if article.DOI != "" {
			matched[strings.ToLower(article.DOI)] = struct{}{}
		}
		if _, added := ec.graph.AddArticle(article, level, status); added {
			inserted++
			ec.loaded = append(ec.loaded, article)
			if level == 2 {
				ec.level2 = append(ec.level2, article)
			}
		}
	}

	if ec.allowPlaceholders {
		for _, id := range candidates {
			if _, ok := matched[id]; ok {
				continue
			}
			if _, ok := matched[strings.ToLower(id)]; ok {
				continue
			}
			if _, added := ec.graph.AddPlaceholder(id, level, status); added {
				inserted++
			}
		}
	}

	e.logger.Debug("level expanded",
		zap.Int("level", level),
		zap.Int("candidates", len(candidates)),
		zap.Int("resolved", len(found)),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}
