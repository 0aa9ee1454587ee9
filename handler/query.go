package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/pkg/metrics"
	"github.com/jansaakshi/backend/query"
)

// responses list at most this many projects; projects_count carries the total
const maxListedProjects = 10

// Asker answers natural-language questions
type Asker interface {
	Ask(ctx context.Context, req query.Request) (*query.Answer, error)
}

type QueryHandler struct {
	asker   Asker
	city    cityResolver
	metrics *metrics.Metrics
}

// NewQueryHandler creates the question endpoint. m may be nil.
func NewQueryHandler(asker Asker, cities CityLookup, defaultCity string, m *metrics.Metrics) *QueryHandler {
	return &QueryHandler{
		asker:   asker,
		city:    cityResolver{cities: cities, defaultCity: defaultCity},
		metrics: m,
	}
}

type QueryRequest struct {
	Query          string `json:"query"`
	City           string `json:"city"`
	WardNo         string `json:"ward_no"`
	WardName       string `json:"ward_name"`
	ProjectType    string `json:"project_type"`
	Status         string `json:"status"`
	CorporatorName string `json:"corporator_name"`
	ContractorName string `json:"contractor_name"`
	Prompt         string `json:"prompt"`
}

type QueryResponse struct {
	Success       bool            `json:"success"`
	Query         string          `json:"query"`
	City          string          `json:"city"`
	Intent        query.Intent    `json:"intent"`
	Found         bool            `json:"found"`
	Answer        string          `json:"answer"`
	Notice        string          `json:"notice,omitempty"`
	Suggestions   []string        `json:"suggestions"`
	Keywords      model.FilterSet `json:"keywords_extracted"`
	ProjectsCount int             `json:"projects_count"`
	Projects      []model.Project `json:"projects"`
	Meetings      []model.Meeting `json:"meetings"`
	Stage         query.Stage     `json:"stage"`
}

// Ask handles POST /api/query
func (h *QueryHandler) Ask(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Query is required"})
		return
	}

	cityID, cityName, ok := h.city.resolve(c, req.City)
	if !ok {
		return
	}

	ans, err := h.asker.Ask(c.Request.Context(), query.Request{
		Question: req.Query,
		CityID:   cityID,
		Prompt:   req.Prompt,
		Overrides: model.Overrides{
			WardNo:         req.WardNo,
			WardName:       req.WardName,
			ProjectType:    req.ProjectType,
			Status:         req.Status,
			CorporatorName: req.CorporatorName,
			ContractorName: req.ContractorName,
		},
	})
	if err != nil {
		logger.Error(c.Request.Context(), "query failed", "error", err)
		status, msg := http.StatusInternalServerError, "Failed to answer query"
		if errors.Is(err, model.ErrStoreUnavailable) {
			status, msg = http.StatusServiceUnavailable, "Database temporarily unavailable"
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}

	if h.metrics != nil {
		h.metrics.QueryAnswers.WithLabelValues(string(ans.Intent), string(ans.Stage), strconv.FormatBool(ans.Found)).Inc()
	}
	logger.Info(c.Request.Context(), "query answered",
		"intent", ans.Intent,
		"stage", ans.Stage,
		"projects", len(ans.Projects),
		"meetings", len(ans.Meetings),
	)

	projects := ans.Projects
	if len(projects) > maxListedProjects {
		projects = projects[:maxListedProjects]
	}
	suggestions := ans.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	c.JSON(http.StatusOK, QueryResponse{
		Success:       true,
		Query:         ans.Question,
		City:          cityName,
		Intent:        ans.Intent,
		Found:         ans.Found,
		Answer:        ans.Answer,
		Notice:        ans.Notice,
		Suggestions:   suggestions,
		Keywords:      ans.Filters,
		ProjectsCount: len(ans.Projects),
		Projects:      projects,
		Meetings:      ans.Meetings,
		Stage:         ans.Stage,
	})
}
