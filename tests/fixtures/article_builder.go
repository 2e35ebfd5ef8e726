package fixtures

import (
	"refgraph-backend/domain/core/entities"
)

// ArticleBuilder builds articles and membership rows for tests.
type ArticleBuilder struct {
	article     entities.Article
	status      entities.MembershipStatus
	sourceQuery string
}

// NewArticleBuilder creates a builder with sensible defaults.
func NewArticleBuilder() *ArticleBuilder {
	return &ArticleBuilder{
		article: entities.Article{
			ID:    1,
			Title: "Test Article",
		},
		status: entities.StatusSelected,
	}
}

func (b *ArticleBuilder) WithID(id int64) *ArticleBuilder {
	b.article.ID = id
	return b
}

func (b *ArticleBuilder) WithDOI(doi string) *ArticleBuilder {
	b.article.DOI = doi
	return b
}

func (b *ArticleBuilder) WithPMID(pmid string) *ArticleBuilder {
	b.article.PMID = pmid
	return b
}

func (b *ArticleBuilder) WithTitle(title string) *ArticleBuilder {
	b.article.Title = title
	return b
}

func (b *ArticleBuilder) WithAuthors(authors ...string) *ArticleBuilder {
	b.article.Authors = authors
	return b
}

func (b *ArticleBuilder) WithYear(year int) *ArticleBuilder {
	b.article.Year = &year
	return b
}

func (b *ArticleBuilder) WithReferences(ids ...string) *ArticleBuilder {
	b.article.ReferenceData = ids
	return b
}

// WithReferencesRaw sets the reference column in its raw textual form.
func (b *ArticleBuilder) WithReferencesRaw(raw any) *ArticleBuilder {
	b.article.ReferenceData = raw
	return b
}

func (b *ArticleBuilder) WithCiting(ids ...string) *ArticleBuilder {
	b.article.CitingData = ids
	return b
}

func (b *ArticleBuilder) WithCitedByCounts(stored, external int) *ArticleBuilder {
	b.article.CitedByCount = stored
	b.article.ExternalCitedByCount = external
	return b
}

func (b *ArticleBuilder) WithStatsQuality(quality int) *ArticleBuilder {
	b.article.StatsQuality = quality
	return b
}

func (b *ArticleBuilder) WithRawMetadata(raw string) *ArticleBuilder {
	b.article.RawMetadata = []byte(raw)
	return b
}

func (b *ArticleBuilder) WithStatus(status entities.MembershipStatus) *ArticleBuilder {
	b.status = status
	return b
}

func (b *ArticleBuilder) WithSourceQuery(sourceQuery string) *ArticleBuilder {
	b.sourceQuery = sourceQuery
	return b
}

// Build returns the article.
func (b *ArticleBuilder) Build() *entities.Article {
	article := b.article
	return &article
}

// BuildRow returns the article joined with its membership.
func (b *ArticleBuilder) BuildRow() *entities.ArticleRow {
	return &entities.ArticleRow{
		Article:     b.article,
		Status:      b.status,
		SourceQuery: b.sourceQuery,
	}
}
