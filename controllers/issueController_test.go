package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"citycare-be/apperrors"
	"citycare-be/middlewares"
	"citycare-be/models"
	"citycare-be/services"
	"citycare-be/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// stubService returns err from every call.
type stubService struct {
	err        error
	lastFilter store.IssueFilter
}

func (s *stubService) Report(context.Context, models.Actor, services.ReportInput) (*models.Issue, error) {
	return nil, s.err
}

func (s *stubService) Get(context.Context, string) (*models.Issue, error) { return nil, s.err }

func (s *stubService) List(_ context.Context, f store.IssueFilter) ([]models.Issue, error) {
	s.lastFilter = f
	return nil, s.err
}

func (s *stubService) ListReportedBy(context.Context, models.Actor) ([]models.Issue, error) {
	return nil, s.err
}

func (s *stubService) ListAssignedTo(context.Context, models.Actor) ([]models.Issue, error) {
	return nil, s.err
}

func (s *stubService) Transition(context.Context, models.Actor, string, string, string) (*models.Issue, error) {
	return nil, s.err
}

func (s *stubService) Assign(context.Context, models.Actor, string, string) (*models.Issue, error) {
	return nil, s.err
}

func (s *stubService) Stats(context.Context) (services.Stats, error) { return services.Stats{}, s.err }

func setupController(svc IssueService, withActor bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ic := NewIssueController(svc, nil, zap.NewNop())
	r := gin.New()
	if withActor {
		r.Use(func(c *gin.Context) {
			c.Set(middlewares.ActorKey, models.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
		})
	}
	r.GET("/issues", ic.ListIssues)
	r.GET("/issues/stats", ic.GetStats)
	r.GET("/issues/:id", ic.GetIssue)
	r.PUT("/issues/:id/status", ic.UpdateStatus)
	r.POST("/issues/report", ic.ReportIssue)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperrors.NewValidationError("status", "Invalid status value"), http.StatusBadRequest, "Invalid status value"},
		{"forbidden", apperrors.NewForbiddenError("nope"), http.StatusForbidden, "nope"},
		{"not found", apperrors.NewNotFoundError("Issue not found"), http.StatusNotFound, "Issue not found"},
		{"conflict", apperrors.NewConflictError("Issue was modified concurrently"), http.StatusConflict, "Issue was modified concurrently"},
		{"persistence", apperrors.NewPersistenceError("Failed to update issue", errors.New("socket closed")), http.StatusInternalServerError, "Failed to update issue"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupController(&stubService{err: tt.err}, true)

			rr := serve(r, http.MethodPut, "/issues/abc/status", `{"status":"resolved"}`)
			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, `{"message":"`+tt.message+`","issue":null}`, rr.Body.String())

			rr = serve(r, http.MethodGet, "/issues/stats", "")
			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, `{"message":"`+tt.message+`"}`, rr.Body.String())
		})
	}
}

func TestPersistenceCauseNotExposed(t *testing.T) {
	r := setupController(&stubService{err: apperrors.NewPersistenceError("Failed to retrieve issue", errors.New("dial tcp 10.0.0.1"))}, true)

	rr := serve(r, http.MethodGet, "/issues/abc", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.1")
}

func TestListIssues_ParsesFilters(t *testing.T) {
	svc := &stubService{}
	r := setupController(svc, true)

	rr := serve(r, http.MethodGet, "/issues?status=in-progress&category=road", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
	if assert.NotNil(t, svc.lastFilter.Status) && assert.NotNil(t, svc.lastFilter.Category) {
		assert.Equal(t, models.StatusInProgress, *svc.lastFilter.Status)
		assert.Equal(t, models.CategoryRoad, *svc.lastFilter.Category)
	}

	rr = serve(r, http.MethodGet, "/issues?category=parks", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"Invalid category value"}`, rr.Body.String())
}

func TestMalformedBody(t *testing.T) {
	r := setupController(&stubService{}, true)

	rr := serve(r, http.MethodPut, "/issues/abc/status", `{"status":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"Invalid request body","issue":null}`, rr.Body.String())
}

func TestMissingActor(t *testing.T) {
	r := setupController(&stubService{}, false)

	rr := serve(r, http.MethodPost, "/issues/report", `{"title":"t"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
