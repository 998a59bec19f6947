package controllers

import (
	"errors"
	"net/http"

	"citycare-be/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrorCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrorCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage never exposes the cause of a persistence failure.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Internal server error"
}

func (ic *IssueController) writeError(c *gin.Context, err error, body gin.H) {
	status := statusFor(apperrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		ic.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

// issueError is used by endpoints returning a single issue.
func (ic *IssueController) issueError(c *gin.Context, err error) {
	ic.writeError(c, err, gin.H{"message": errorMessage(err), "issue": nil})
}

func (ic *IssueController) listError(c *gin.Context, err error) {
	ic.writeError(c, err, gin.H{"message": errorMessage(err)})
}
