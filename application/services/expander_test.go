package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"refgraph-backend/application/queries"
	"refgraph-backend/domain/core/aggregates"
	"refgraph-backend/domain/core/entities"
	"refgraph-backend/tests/fixtures"
	"refgraph-backend/tests/mocks"
)

func graphQuery(depth, perNode, total int) *queries.GetCitationGraphQuery {
	return &queries.GetCitationGraphQuery{
		ProjectID:       "p1",
		Depth:           depth,
		MaxLinksPerNode: perNode,
		MaxTotalNodes:   total,
	}
}

func nodeIDs(graph *aggregates.CitationGraph) []string {
	ids := make([]string, 0, graph.NodeCount())
	for _, n := range graph.Nodes() {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestExpand_Level2CreatesNodesAndPlaceholders(t *testing.T) {
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").WithReferences("200", "999").BuildRow(),
		},
		External: []*entities.Article{
			fixtures.NewArticleBuilder().WithID(2).WithPMID("200").Build(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(10)

	loaded, err := expander.Expand(context.Background(), graph, repo.Rows, graphQuery(2, 10, 10))
	require.NoError(t, err)

	// Seed, resolved reference, and a placeholder for the storage miss.
	assert.ElementsMatch(t, []string{"1", "2", "pmid:999"}, nodeIDs(graph))
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(2), loaded[0].ID)

	ref, ok := graph.Node("2")
	require.True(t, ok)
	assert.Equal(t, 2, ref.Level)
	assert.Equal(t, aggregates.NodeStatusReference, ref.Status)
}

func TestExpand_PerArticleFanOutCap(t *testing.T) {
	refs := []string{"201", "202", "203", "204", "205", "206", "207"}
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").WithReferences(refs...).BuildRow(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(100)

	_, err := expander.Expand(context.Background(), graph, repo.Rows, graphQuery(2, 3, 100))
	require.NoError(t, err)

	require.Len(t, repo.FindCalls, 1)
	assert.Len(t, repo.FindCalls[0], 3)
	// 1 seed + 3 placeholders, not 7.
	assert.Equal(t, 4, graph.NodeCount())
}

func TestExpand_CandidatesTruncatedToBudgetBeforeLookup(t *testing.T) {
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").
				WithReferences("201", "202", "203", "204", "205").BuildRow(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(3)

	_, err := expander.Expand(context.Background(), graph, repo.Rows, graphQuery(2, 50, 3))
	require.NoError(t, err)

	// One node already used by the seed; the lookup sees only the two
	// candidates that still fit, not all five.
	require.Len(t, repo.FindCalls, 1)
	assert.Len(t, repo.FindCalls[0], 2)
	assert.Equal(t, 3, graph.NodeCount())
}

func TestExpand_BudgetTruncatesSeedInsertion(t *testing.T) {
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").BuildRow(),
			fixtures.NewArticleBuilder().WithID(2).WithPMID("101").BuildRow(),
			fixtures.NewArticleBuilder().WithID(3).WithPMID("102").BuildRow(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(1)

	_, err := expander.Expand(context.Background(), graph, repo.Rows, graphQuery(3, 10, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, graph.NodeCount())
	assert.Empty(t, graph.Edges())
	// Nothing left for deeper levels, so no lookups were issued.
	assert.Empty(t, repo.FindCalls)
}

func TestExpand_PlaceholdersSuppressedUnderFilters(t *testing.T) {
	minQuality := 2
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").WithStatsQuality(3).
				WithReferences("999").BuildRow(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(10)

	q := graphQuery(2, 10, 10)
	q.MinStatsQuality = &minQuality
	_, err := expander.Expand(context.Background(), graph, repo.Rows, q)
	require.NoError(t, err)

	// "999" was not found, but a quality filter is active, so the miss
	// is ambiguous and no false node is created.
	assert.Equal(t, []string{"1"}, nodeIDs(graph))
}

func TestExpand_DOIShapedMissSharedAcrossLevels(t *testing.T) {
	// The same unknown DOI appears in the reference set and the citing
	// set; both levels must land on one placeholder node.
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").
				WithReferences("10.1234/abc").WithCiting("10.1234/abc").BuildRow(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(10)

	_, err := expander.Expand(context.Background(), graph, repo.Rows, graphQuery(3, 10, 10))
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, n := range graph.Nodes() {
		counts[n.ID]++
	}
	assert.Equal(t, 1, counts["pmid:10.1234/abc"])
	assert.Equal(t, 2, graph.NodeCount())
}

func TestExpand_DepthThreeAddsCitingAndRelated(t *testing.T) {
	level2 := fixtures.NewArticleBuilder().WithID(2).WithPMID("200").WithCiting("300", "400").Build()
	repo := &mocks.StubArticleRepository{
		Rows: []*entities.ArticleRow{
			fixtures.NewArticleBuilder().WithID(1).WithPMID("100").
				WithReferences("200").WithCiting("300").BuildRow(),
		},
		External: []*entities.Article{
			level2,
			fixtures.NewArticleBuilder().WithID(3).WithPMID("300").Build(),
			fixtures.NewArticleBuilder().WithID(4).WithPMID("400").Build(),
		},
	}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(20)

	_, err := expander.Expand(context.Background(), graph, repo.Rows, graphQuery(3, 10, 20))
	require.NoError(t, err)

	// Level 2: article 2. Level 0: article 3 (cites the seed).
	// Level 3: article 4 cites article 2; "300" is excluded from level 3
	// because it was already a level-0 candidate.
	citing, ok := graph.Node("3")
	require.True(t, ok)
	assert.Equal(t, 0, citing.Level)
	assert.Equal(t, aggregates.NodeStatusCiting, citing.Status)

	related, ok := graph.Node("4")
	require.True(t, ok)
	assert.Equal(t, 3, related.Level)
	assert.Equal(t, aggregates.NodeStatusRelated, related.Status)
}

func TestExpand_DepthMonotonicity(t *testing.T) {
	rows := []*entities.ArticleRow{
		fixtures.NewArticleBuilder().WithID(1).WithPMID("100").
			WithReferences("200", "999").WithCiting("300").BuildRow(),
		fixtures.NewArticleBuilder().WithID(5).WithPMID("101").WithReferences("200").BuildRow(),
	}
	external := []*entities.Article{
		fixtures.NewArticleBuilder().WithID(2).WithPMID("200").WithCiting("400").Build(),
		fixtures.NewArticleBuilder().WithID(3).WithPMID("300").Build(),
		fixtures.NewArticleBuilder().WithID(4).WithPMID("400").Build(),
	}

	build := func(depth int) map[string]struct{} {
		repo := &mocks.StubArticleRepository{Rows: rows, External: external}
		graph := aggregates.NewCitationGraph(50)
		expander := NewGraphExpander(repo, zap.NewNop())
		_, err := expander.Expand(context.Background(), graph, rows, graphQuery(depth, 10, 50))
		require.NoError(t, err)
		ids := make(map[string]struct{})
		for _, id := range nodeIDs(graph) {
			ids[id] = struct{}{}
		}
		return ids
	}

	d1, d2, d3 := build(1), build(2), build(3)
	for id := range d1 {
		assert.Contains(t, d2, id)
	}
	for id := range d2 {
		assert.Contains(t, d3, id)
	}
	assert.Greater(t, len(d2), len(d1))
	assert.Greater(t, len(d3), len(d2))
}

func TestExpand_EmptySeedSet(t *testing.T) {
	repo := &mocks.StubArticleRepository{}
	expander := NewGraphExpander(repo, zap.NewNop())
	graph := aggregates.NewCitationGraph(10)

	loaded, err := expander.Expand(context.Background(), graph, nil, graphQuery(3, 10, 10))
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Zero(t, graph.NodeCount())
}
