package routes

import (
	"citycare-be/controllers"
	"citycare-be/middlewares"
	"citycare-be/models"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes. Every route requires a valid token;
// admin and volunteer views add a role guard on top.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, auth gin.HandlerFunc) {
	issues := r.Group("/api/issues", auth)

	admin := middlewares.RequireRole(models.RoleAdmin)
	volunteer := middlewares.RequireRole(models.RoleVolunteer)

	issues.POST("/report", ic.ReportIssue)
	issues.GET("", ic.ListIssues)
	issues.GET("/", ic.ListIssues)
	issues.GET("/all", admin, ic.ListAllIssues)
	issues.GET("/all/filter", admin, ic.ListAllFiltered)
	issues.GET("/my-issues", ic.ListMyIssues)
	issues.GET("/assigned/me", volunteer, ic.ListAssignedToMe)
	issues.GET("/my-assigned", volunteer, ic.ListAssignedToMe)
	issues.GET("/stats", admin, ic.GetStats)
	issues.PATCH("/update-status/:id", admin, ic.AdminUpdateStatus)
	issues.GET("/:id", ic.GetIssue)
	issues.PUT("/:id/status", ic.UpdateStatus)
	issues.PUT("/:id/assign", admin, ic.AssignVolunteer)
}
