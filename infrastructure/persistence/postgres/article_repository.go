package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"refgraph-backend/application/ports"
	"refgraph-backend/domain/core/entities"
)

// ArticleRepository is the Postgres implementation of the read-only
// storage port. All statements are parameterized; the optional schema
// columns are selected according to the capabilities resolved at startup.
type ArticleRepository struct {
	pool   *pgxpool.Pool
	caps   ports.StorageCapabilities
	logger *zap.Logger
}

// NewArticleRepository creates a Postgres article repository.
func NewArticleRepository(pool *pgxpool.Pool, caps ports.StorageCapabilities, logger *zap.Logger) *ArticleRepository {
	return &ArticleRepository{pool: pool, caps: caps, logger: logger}
}

// ListProjectArticles loads the level-1 rows for a project. Deleted
// memberships are filtered out unconditionally.
func (r *ArticleRepository) ListProjectArticles(ctx context.Context, projectID string, filter ports.StatusFilter, opts ports.ArticleQueryOptions) ([]*entities.ArticleRow, error) {
	var sb strings.Builder
	args := []any{projectID}

	fmt.Fprintf(&sb, `SELECT %s, m.status, %s
		FROM project_articles m
		JOIN articles a ON a.id = m.article_id
		WHERE m.project_id = $1
		  AND m.status <> 'deleted'`,
		r.articleColumns(), r.sourceQueryColumn())

	switch filter {
	case ports.FilterSelected, ports.FilterExcluded:
		args = append(args, string(filter))
		fmt.Fprintf(&sb, " AND m.status = $%d", len(args))
	}

	args = r.appendArticleFilters(&sb, args, opts)

	if r.caps.SourceQueryColumn && len(opts.SourceQueries) > 0 {
		args = append(args, opts.SourceQueries)
		fmt.Fprintf(&sb, " AND m.source_query = ANY($%d)", len(args))
	}

	sb.WriteString(" ORDER BY a.id")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query project articles: %w", err)
	}
	defer rows.Close()

	var result []*entities.ArticleRow
	for rows.Next() {
		row, err := r.scanArticleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project article: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project articles: %w", err)
	}
	return result, nil
}

// FindByExternalIDs resolves a batch of DOIs or PMIDs against storage.
// DOI matching is case-insensitive, PMID matching exact.
func (r *ArticleRepository) FindByExternalIDs(ctx context.Context, ids []string, opts ports.ArticleQueryOptions) ([]*entities.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(ids))
	for i, id := range ids {
		lowered[i] = strings.ToLower(id)
	}

	var sb strings.Builder
	args := []any{lowered, ids}
	fmt.Fprintf(&sb, `SELECT %s
		FROM articles a
		WHERE (LOWER(a.doi) = ANY($1) OR a.pmid = ANY($2))`,
		r.articleColumns())

	args = r.appendArticleFilters(&sb, args, opts)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query articles by external ids: %w", err)
	}
	defer rows.Close()

	var result []*entities.Article
	for rows.Next() {
		article, err := r.scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		result = append(result, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return result, nil
}

// articleColumns selects the article projection; absent optional columns
// are replaced by typed NULLs so the scan shape stays fixed.
func (r *ArticleRepository) articleColumns() string {
	refCol, citCol := "a.reference_pmids", "a.citing_pmids"
	if !r.caps.CitationColumns {
		refCol, citCol = "NULL::text", "NULL::text"
	}
	return fmt.Sprintf(`a.id, a.doi, a.pmid, a.title, a.authors, a.year,
		%s, %s, a.cited_by_count, a.external_cited_by_count,
		a.stats_quality, a.raw_metadata`, refCol, citCol)
}

func (r *ArticleRepository) sourceQueryColumn() string {
	if r.caps.SourceQueryColumn {
		return "m.source_query"
	}
	return "NULL::text"
}

// appendArticleFilters adds the shared year/quality predicates.
func (r *ArticleRepository) appendArticleFilters(sb *strings.Builder, args []any, opts ports.ArticleQueryOptions) []any {
	if opts.YearFrom != nil {
		args = append(args, *opts.YearFrom)
		fmt.Fprintf(sb, " AND a.year >= $%d", len(args))
	}
	if opts.YearTo != nil {
		args = append(args, *opts.YearTo)
		fmt.Fprintf(sb, " AND a.year <= $%d", len(args))
	}
	if opts.MinStatsQuality != nil {
		args = append(args, *opts.MinStatsQuality)
		fmt.Fprintf(sb, " AND a.stats_quality >= $%d", len(args))
	}
	return args
}

func (r *ArticleRepository) scanArticle(rows pgx.Rows) (*entities.Article, error) {
	var (
		article                     entities.Article
		doi, pmid, title            *string
		authors                     []string
		year, cited, extCited, qual *int
		refs, citing                any
	)
	if err := rows.Scan(
		&article.ID, &doi, &pmid, &title, &authors, &year,
		&refs, &citing, &cited, &extCited, &qual, &article.RawMetadata,
	); err != nil {
		return nil, err
	}
	fillArticle(&article, doi, pmid, title, authors, year, refs, citing, cited, extCited, qual)
	return &article, nil
}

func (r *ArticleRepository) scanArticleRow(rows pgx.Rows) (*entities.ArticleRow, error) {
	var (
		row                         entities.ArticleRow
		doi, pmid, title            *string
		authors                     []string
		year, cited, extCited, qual *int
		refs, citing                any
		status                      string
		sourceQuery                 *string
	)
	if err := rows.Scan(
		&row.ID, &doi, &pmid, &title, &authors, &year,
		&refs, &citing, &cited, &extCited, &qual, &row.RawMetadata,
		&status, &sourceQuery,
	); err != nil {
		return nil, err
	}
	fillArticle(&row.Article, doi, pmid, title, authors, year, refs, citing, cited, extCited, qual)
	row.Status = entities.MembershipStatus(status)
	if sourceQuery != nil {
		row.SourceQuery = *sourceQuery
	}
	return &row, nil
}

func fillArticle(a *entities.Article, doi, pmid, title *string, authors []string, year *int, refs, citing any, cited, extCited, qual *int) {
	if doi != nil {
		a.DOI = *doi
	}
	if pmid != nil {
		a.PMID = *pmid
	}
	if title != nil {
		a.Title = *title
	}
	a.Authors = authors
	a.Year = year
	a.ReferenceData = refs
	a.CitingData = citing
	if cited != nil {
		a.CitedByCount = *cited
	}
	if extCited != nil {
		a.ExternalCitedByCount = *extCited
	}
	if qual != nil {
		a.StatsQuality = *qual
	}
}
