package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"refgraph-backend/application/queries"
	querybus "refgraph-backend/application/queries/bus"
	"refgraph-backend/pkg/common"
	apperrors "refgraph-backend/pkg/errors"
)

// CitationGraphHandler is the thin HTTP wrapper over the graph query.
// Authorization (project membership) is the caller's concern and happens
// before requests reach this service.
type CitationGraphHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewCitationGraphHandler creates a new citation graph handler.
func NewCitationGraphHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *CitationGraphHandler {
	return &CitationGraphHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// GetCitationGraph handles GET /projects/{projectID}/graph.
func (h *CitationGraphHandler) GetCitationGraph(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		common.RespondError(w, http.StatusBadRequest, string(apperrors.ErrorTypeValidation), "project ID is required")
		return
	}

	params := r.URL.Query()
	query := queries.GetCitationGraphQuery{
		ProjectID:         projectID,
		Filter:            params.Get("filter"),
		Depth:             intParam(params.Get("depth")),
		YearFrom:          optionalIntParam(params.Get("yearFrom")),
		YearTo:            optionalIntParam(params.Get("yearTo")),
		MinStatsQuality:   optionalIntParam(params.Get("minStatsQuality")),
		SourceQueriesJSON: params.Get("sourceQueries"),
		MaxLinksPerNode:   intParam(params.Get("maxLinksPerNode")),
		MaxTotalNodes:     intParam(params.Get("maxTotalNodes")),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to build citation graph",
			zap.String("projectID", projectID),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// intParam parses a numeric parameter; malformed values fall back to zero
// and are corrected by the query normalizer, never rejected.
func intParam(raw string) int {
	v, _ := strconv.Atoi(raw)
	return v
}

func optionalIntParam(raw string) *int {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
