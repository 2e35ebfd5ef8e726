package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"refgraph-backend/application/queries"
	querybus "refgraph-backend/application/queries/bus"
	"refgraph-backend/pkg/common"
	apperrors "refgraph-backend/pkg/errors"
)

func newTestRouter(t *testing.T, handle func(ctx context.Context, q queries.GetCitationGraphQuery) (any, error)) *chi.Mux {
	t.Helper()
	bus := querybus.NewQueryBus()
	err := bus.Register(queries.GetCitationGraphQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (any, error) {
		return handle(ctx, query.(queries.GetCitationGraphQuery))
	}))
	require.NoError(t, err)

	handler := NewCitationGraphHandler(bus, zap.NewNop())
	router := chi.NewRouter()
	router.Get("/projects/{projectID}/graph", handler.GetCitationGraph)
	return router
}

func TestGetCitationGraph_ParsesQueryParams(t *testing.T) {
	var captured queries.GetCitationGraphQuery
	router := newTestRouter(t, func(_ context.Context, q queries.GetCitationGraphQuery) (any, error) {
		captured = q
		return &queries.GetCitationGraphResult{}, nil
	})

	target := "/projects/p1/graph?filter=selected&depth=3&yearFrom=2010&yearTo=2020" +
		"&minStatsQuality=2&maxLinksPerNode=25&maxTotalNodes=100" +
		"&sourceQueries=%5B%22manual%22%5D"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", captured.ProjectID)
	assert.Equal(t, "selected", captured.Filter)
	assert.Equal(t, 3, captured.Depth)
	require.NotNil(t, captured.YearFrom)
	assert.Equal(t, 2010, *captured.YearFrom)
	require.NotNil(t, captured.YearTo)
	assert.Equal(t, 2020, *captured.YearTo)
	require.NotNil(t, captured.MinStatsQuality)
	assert.Equal(t, 2, *captured.MinStatsQuality)
	assert.Equal(t, 25, captured.MaxLinksPerNode)
	assert.Equal(t, 100, captured.MaxTotalNodes)
	assert.Equal(t, `["manual"]`, captured.SourceQueriesJSON)
}

func TestGetCitationGraph_MalformedParamsStillServed(t *testing.T) {
	var captured queries.GetCitationGraphQuery
	router := newTestRouter(t, func(_ context.Context, q queries.GetCitationGraphQuery) (any, error) {
		captured = q
		return &queries.GetCitationGraphResult{}, nil
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/projects/p1/graph?depth=abc&yearFrom=xyz&maxTotalNodes=-5", nil))

	// Malformed numbers degrade to zero/absent; the normalizer downstream
	// corrects them rather than the request failing.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, captured.Depth)
	assert.Nil(t, captured.YearFrom)
	assert.Equal(t, -5, captured.MaxTotalNodes)
}

func TestGetCitationGraph_SuccessEnvelope(t *testing.T) {
	router := newTestRouter(t, func(_ context.Context, _ queries.GetCitationGraphQuery) (any, error) {
		return &queries.GetCitationGraphResult{NodeCount: 2, EdgeCount: 1}, nil
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/p1/graph", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Nil(t, envelope.Error)
	require.NotNil(t, envelope.Data)
}

func TestGetCitationGraph_ErrorEnvelope(t *testing.T) {
	router := newTestRouter(t, func(_ context.Context, _ queries.GetCitationGraphQuery) (any, error) {
		return nil, apperrors.NewDatabaseError("list project articles", assert.AnError)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/p1/graph", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var envelope common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, string(apperrors.ErrorTypeDatabase), envelope.Error.Type)
}
