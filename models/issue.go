package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"citycare-be/apperrors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	CategoryRoad        IssueCategory = "road"
	CategoryWater       IssueCategory = "water"
	CategoryElectricity IssueCategory = "electricity"
	CategoryGarbage     IssueCategory = "garbage"
	CategoryOther       IssueCategory = "other"
)

// IssueStatus enum
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
)

// IssueStatuses lists every status in lifecycle order.
var IssueStatuses = []IssueStatus{StatusPending, StatusInProgress, StatusResolved}

// IssueCategories lists every accepted category.
var IssueCategories = []IssueCategory{CategoryRoad, CategoryWater, CategoryElectricity, CategoryGarbage, CategoryOther}

// IsValid reports whether s is one of the known statuses.
func (s IssueStatus) IsValid() bool {
	for _, known := range IssueStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsValid reports whether c is one of the known categories.
func (c IssueCategory) IsValid() bool {
	for _, known := range IssueCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseIssueStatus converts raw input into an IssueStatus.
func ParseIssueStatus(raw string) (IssueStatus, error) {
	s := IssueStatus(strings.TrimSpace(raw))
	if !s.IsValid() {
		return "", apperrors.NewValidationError("status", "Invalid status value")
	}
	return s, nil
}

// ParseIssueCategory converts raw input into an IssueCategory. An empty value
// yields CategoryOther.
func ParseIssueCategory(raw string) (IssueCategory, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CategoryOther, nil
	}
	c := IssueCategory(trimmed)
	if !c.IsValid() {
		return "", apperrors.NewValidationError("category", "Invalid category value")
	}
	return c, nil
}

// StatusChangeEvent is one immutable entry of an issue's audit trail.
type StatusChangeEvent struct {
	Status    IssueStatus        `bson:"status" json:"status" validate:"oneof=pending in-progress resolved"`
	ChangedBy primitive.ObjectID `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time          `bson:"changedAt" json:"changedAt"`
	Note      string             `bson:"note" json:"note"`
	ActorRole Role               `bson:"actorRole" json:"actorRole" validate:"oneof=citizen volunteer admin unknown"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title         string              `bson:"title" json:"title" validate:"required"`
	Description   string              `bson:"description" json:"description" validate:"required"`
	Category      IssueCategory       `bson:"category" json:"category" validate:"oneof=road water electricity garbage other"`
	Location      string              `bson:"location" json:"location" validate:"required"`
	Image         *string             `bson:"image,omitempty" json:"image,omitempty"`
	Status        IssueStatus         `bson:"status" json:"status" validate:"oneof=pending in-progress resolved"`
	ReportedBy    primitive.ObjectID  `bson:"reportedBy" json:"reportedBy"`
	AssignedTo    *primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	StatusHistory []StatusChangeEvent `bson:"statusHistory" json:"statusHistory" validate:"min=1,dive"`
	Version       int64               `bson:"version" json:"version"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the record-level rules every persisted issue must satisfy.
// The returned error names the first offending field.
func (i *Issue) Validate() error {
	if err := validate.Struct(i); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return toValidationError(fieldErrs[0])
		}
		return apperrors.NewValidationError("", err.Error())
	}
	if i.ReportedBy.IsZero() {
		return apperrors.NewValidationError("reportedBy", "reportedBy is required")
	}
	if last, ok := i.LatestEvent(); ok && last.Status != i.Status {
		return apperrors.NewValidationError("status", "status does not match the latest history entry")
	}
	return nil
}

// ValidateNew applies Validate plus the creation rules: a new issue is pending
// and its history is exactly the reporter's creation event.
func (i *Issue) ValidateNew() error {
	if err := i.Validate(); err != nil {
		return err
	}
	if i.Status != StatusPending {
		return apperrors.NewValidationError("status", "a new issue must be pending")
	}
	if len(i.StatusHistory) != 1 {
		return apperrors.NewValidationError("statusHistory", "a new issue must carry only its creation event")
	}
	if i.StatusHistory[0].ChangedBy != i.ReportedBy {
		return apperrors.NewValidationError("statusHistory", "the creation event must be recorded by the reporter")
	}
	return nil
}

func toValidationError(fe validator.FieldError) *apperrors.AppError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperrors.NewValidationError(field, fmt.Sprintf("%s is required", field))
	case "min":
		return apperrors.NewValidationError(field, fmt.Sprintf("%s must not be empty", field))
	default:
		return apperrors.NewValidationError(field, fmt.Sprintf("Invalid %s value", field))
	}
}

// LatestEvent returns the most recent history entry.
func (i *Issue) LatestEvent() (StatusChangeEvent, bool) {
	if len(i.StatusHistory) == 0 {
		return StatusChangeEvent{}, false
	}
	return i.StatusHistory[len(i.StatusHistory)-1], true
}

// Clone returns a deep copy so callers cannot alias the stored history.
func (i *Issue) Clone() *Issue {
	c := *i
	if i.Image != nil {
		img := *i.Image
		c.Image = &img
	}
	if i.AssignedTo != nil {
		a := *i.AssignedTo
		c.AssignedTo = &a
	}
	c.StatusHistory = append([]StatusChangeEvent(nil), i.StatusHistory...)
	return &c
}
