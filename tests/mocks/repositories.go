package mocks

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"refgraph-backend/application/ports"
	"refgraph-backend/domain/core/entities"
)

// MockArticleRepository is a testify mock of ports.ArticleRepository.
type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) ListProjectArticles(ctx context.Context, projectID string, filter ports.StatusFilter, opts ports.ArticleQueryOptions) ([]*entities.ArticleRow, error) {
	args := m.Called(ctx, projectID, filter, opts)
	if rows := args.Get(0); rows != nil {
		return rows.([]*entities.ArticleRow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockArticleRepository) FindByExternalIDs(ctx context.Context, ids []string, opts ports.ArticleQueryOptions) ([]*entities.Article, error) {
	args := m.Called(ctx, ids, opts)
	if articles := args.Get(0); articles != nil {
		return articles.([]*entities.Article), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBibliographicLookup is a testify mock of ports.BibliographicLookup.
type MockBibliographicLookup struct {
	mock.Mock
}

func (m *MockBibliographicLookup) FetchByIDs(ctx context.Context, pmids []string) ([]ports.PartialArticle, error) {
	args := m.Called(ctx, pmids)
	if records := args.Get(0); records != nil {
		return records.([]ports.PartialArticle), args.Error(1)
	}
	return nil, args.Error(1)
}

// StubArticleRepository is an in-memory repository that mimics the SQL
// contract closely enough for expansion scenarios: status filtering,
// year/quality constraints, case-insensitive DOI and exact PMID match.
type StubArticleRepository struct {
	Rows     []*entities.ArticleRow
	External []*entities.Article

	ListErr error
	FindErr error

	// FindCalls records each candidate batch, for fan-out assertions.
	FindCalls [][]string
}

func (s *StubArticleRepository) ListProjectArticles(_ context.Context, _ string, filter ports.StatusFilter, opts ports.ArticleQueryOptions) ([]*entities.ArticleRow, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []*entities.ArticleRow
	for _, row := range s.Rows {
		if row.Status == entities.StatusDeleted {
			continue
		}
		switch filter {
		case ports.FilterSelected:
			if row.Status != entities.StatusSelected {
				continue
			}
		case ports.FilterExcluded:
			if row.Status != entities.StatusExcluded {
				continue
			}
		}
		if !matchesOptions(&row.Article, opts) {
			continue
		}
		if len(opts.SourceQueries) > 0 && !containsString(opts.SourceQueries, row.SourceQuery) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *StubArticleRepository) FindByExternalIDs(_ context.Context, ids []string, opts ports.ArticleQueryOptions) ([]*entities.Article, error) {
	s.FindCalls = append(s.FindCalls, append([]string(nil), ids...))
	if s.FindErr != nil {
		return nil, s.FindErr
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[strings.ToLower(id)] = struct{}{}
	}

	pool := make([]*entities.Article, 0, len(s.External)+len(s.Rows))
	pool = append(pool, s.External...)
	for _, row := range s.Rows {
		article := row.Article
		pool = append(pool, &article)
	}

	var out []*entities.Article
	seen := make(map[int64]struct{})
	for _, article := range pool {
		if _, ok := seen[article.ID]; ok {
			continue
		}
		matched := false
		if article.PMID != "" {
			_, matched = wanted[strings.ToLower(article.PMID)]
		}
		if !matched && article.DOI != "" {
			_, matched = wanted[strings.ToLower(article.DOI)]
		}
		if !matched || !matchesOptions(article, opts) {
			continue
		}
		seen[article.ID] = struct{}{}
		out = append(out, article)
	}
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func matchesOptions(a *entities.Article, opts ports.ArticleQueryOptions) bool {
	if opts.YearFrom != nil && (a.Year == nil || *a.Year < *opts.YearFrom) {
		return false
	}
	if opts.YearTo != nil && (a.Year == nil || *a.Year > *opts.YearTo) {
		return false
	}
	if opts.MinStatsQuality != nil && a.StatsQuality < *opts.MinStatsQuality {
		return false
	}
	return true
}

// StubLookup is a canned bibliographic lookup.
type StubLookup struct {
	Records []ports.PartialArticle
	Err     error
	Calls   [][]string
}

func (s *StubLookup) FetchByIDs(_ context.Context, pmids []string) ([]ports.PartialArticle, error) {
	s.Calls = append(s.Calls, append([]string(nil), pmids...))
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Records, nil
}
