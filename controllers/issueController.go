package controllers

import (
	"context"
	"net/http"
	"strings"

	"citycare-be/apperrors"
	"citycare-be/directory"
	"citycare-be/middlewares"
	"citycare-be/models"
	"citycare-be/services"
	"citycare-be/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// IssueService is the part of services.IssueService the HTTP layer needs.
type IssueService interface {
	Report(ctx context.Context, actor models.Actor, in services.ReportInput) (*models.Issue, error)
	Get(ctx context.Context, issueID string) (*models.Issue, error)
	List(ctx context.Context, filter store.IssueFilter) ([]models.Issue, error)
	ListReportedBy(ctx context.Context, actor models.Actor) ([]models.Issue, error)
	ListAssignedTo(ctx context.Context, actor models.Actor) ([]models.Issue, error)
	Transition(ctx context.Context, actor models.Actor, issueID, newStatus, note string) (*models.Issue, error)
	Assign(ctx context.Context, actor models.Actor, issueID, volunteerID string) (*models.Issue, error)
	Stats(ctx context.Context) (services.Stats, error)
}

// IssuePresenter expands user references before issues are written out.
type IssuePresenter interface {
	Issue(ctx context.Context, issue *models.Issue) *models.IssueView
	Issues(ctx context.Context, issues []models.Issue) []models.IssueView
}

type IssueController struct {
	service   IssueService
	presenter IssuePresenter
	logger    *zap.Logger
}

// NewIssueController uses an id-only presenter when presenter is nil.
func NewIssueController(service IssueService, presenter IssuePresenter, logger *zap.Logger) *IssueController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if presenter == nil {
		presenter = directory.NewPopulator(nil, logger)
	}
	return &IssueController{service: service, presenter: presenter, logger: logger}
}

type reportRequest struct {
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Category    string  `json:"category" form:"category"`
	Location    string  `json:"location" form:"location"`
	Image       *string `json:"image" form:"image"`
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type assignRequest struct {
	VolunteerID string `json:"volunteerId"`
}

// ReportIssue accepts either a JSON body or a form submission.
func (ic *IssueController) ReportIssue(c *gin.Context) {
	actor, ok := ic.actor(c)
	if !ok {
		return
	}

	var req reportRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "issue": nil})
		return
	}

	issue, err := ic.service.Report(c.Request.Context(), actor, services.ReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Image:       req.Image,
	})
	if err != nil {
		ic.issueError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Issue reported successfully", "issue": ic.presenter.Issue(c.Request.Context(), issue)})
}

// ListIssues supports optional status and category query filters.
func (ic *IssueController) ListIssues(c *gin.Context) {
	var filter store.IssueFilter
	if err := parseStatusQuery(c, &filter); err != nil {
		ic.listError(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category, err := models.ParseIssueCategory(raw)
		if err != nil {
			ic.listError(c, err)
			return
		}
		filter.Category = &category
	}
	ic.respondList(c, filter)
}

func (ic *IssueController) ListAllIssues(c *gin.Context) {
	ic.respondList(c, store.IssueFilter{})
}

// ListAllFiltered is the admin view filtered by status, assignee and reporter.
func (ic *IssueController) ListAllFiltered(c *gin.Context) {
	var filter store.IssueFilter
	if err := parseStatusQuery(c, &filter); err != nil {
		ic.listError(c, err)
		return
	}
	assignedTo, err := parseIDQuery(c, "assignedTo")
	if err != nil {
		ic.listError(c, err)
		return
	}
	reportedBy, err := parseIDQuery(c, "reportedBy")
	if err != nil {
		ic.listError(c, err)
		return
	}
	filter.AssignedTo = assignedTo
	filter.ReportedBy = reportedBy
	ic.respondList(c, filter)
}

func (ic *IssueController) ListMyIssues(c *gin.Context) {
	actor, ok := ic.actor(c)
	if !ok {
		return
	}
	issues, err := ic.service.ListReportedBy(c.Request.Context(), actor)
	if err != nil {
		ic.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, ic.presenter.Issues(c.Request.Context(), issues))
}

func (ic *IssueController) ListAssignedToMe(c *gin.Context) {
	actor, ok := ic.actor(c)
	if !ok {
		return
	}
	issues, err := ic.service.ListAssignedTo(c.Request.Context(), actor)
	if err != nil {
		ic.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, ic.presenter.Issues(c.Request.Context(), issues))
}

func (ic *IssueController) GetIssue(c *gin.Context) {
	issue, err := ic.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ic.issueError(c, err)
		return
	}
	c.JSON(http.StatusOK, ic.presenter.Issue(c.Request.Context(), issue))
}

// AdminUpdateStatus is the admin-only status endpoint. The policy still runs
// in the service, so the audit entry records admin capacity.
func (ic *IssueController) AdminUpdateStatus(c *gin.Context) {
	ic.transition(c, "Status updated")
}

// UpdateStatus lets admins, reporters and the assigned volunteer change the
// status, with an optional note.
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	ic.transition(c, "Status updated successfully")
}

func (ic *IssueController) transition(c *gin.Context, successMessage string) {
	actor, ok := ic.actor(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "issue": nil})
		return
	}

	issue, err := ic.service.Transition(c.Request.Context(), actor, c.Param("id"), req.Status, req.Note)
	if err != nil {
		ic.issueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": successMessage, "issue": ic.presenter.Issue(c.Request.Context(), issue)})
}

func (ic *IssueController) AssignVolunteer(c *gin.Context) {
	actor, ok := ic.actor(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "issue": nil})
		return
	}

	issue, err := ic.service.Assign(c.Request.Context(), actor, c.Param("id"), req.VolunteerID)
	if err != nil {
		ic.issueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Volunteer assigned successfully", "issue": ic.presenter.Issue(c.Request.Context(), issue)})
}

func (ic *IssueController) GetStats(c *gin.Context) {
	stats, err := ic.service.Stats(c.Request.Context())
	if err != nil {
		ic.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ic *IssueController) respondList(c *gin.Context, filter store.IssueFilter) {
	issues, err := ic.service.List(c.Request.Context(), filter)
	if err != nil {
		ic.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, ic.presenter.Issues(c.Request.Context(), issues))
}

func (ic *IssueController) actor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middlewares.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
	}
	return actor, ok
}

func parseStatusQuery(c *gin.Context, filter *store.IssueFilter) error {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil
	}
	status, err := models.ParseIssueStatus(raw)
	if err != nil {
		return err
	}
	filter.Status = &status
	return nil
}

func parseIDQuery(c *gin.Context, key string) (*primitive.ObjectID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(key, "Invalid "+key+" value")
	}
	return &id, nil
}
