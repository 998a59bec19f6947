package services

import "citycare-be/models"

// Action is a mutation the policy can authorize.
type Action string

const (
	ActionTransitionStatus Action = "transitionStatus"
	ActionAssign           Action = "assign"
)

// Capacity records which rule granted a decision.
type Capacity string

const (
	CapacityNone     Capacity = ""
	CapacityAdmin    Capacity = "admin"
	CapacityAssignee Capacity = "assignee"
	CapacityReporter Capacity = "reporter"
)

// Decision is the outcome of Authorize. Callers must not mutate the issue
// unless Allowed is true.
type Decision struct {
	Allowed  bool
	Capacity Capacity
	Reason   string
}

func allow(c Capacity) Decision { return Decision{Allowed: true, Capacity: c} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize decides whether actor may perform action on issue. It has no side
// effects.
//
// Admins may do anything. A status transition is also open to the volunteer
// the issue is assigned to and to the citizen who reported it, so either side
// can confirm a fix. Assignment is admin-only.
func Authorize(actor models.Actor, issue *models.Issue, action Action) Decision {
	if issue == nil {
		return deny("unknown issue")
	}
	if actor.Role == models.RoleAdmin {
		return allow(CapacityAdmin)
	}
	if actor.ID.IsZero() {
		return deny("unidentified actor")
	}

	switch action {
	case ActionTransitionStatus:
		if actor.Role == models.RoleVolunteer && issue.AssignedTo != nil && *issue.AssignedTo == actor.ID {
			return allow(CapacityAssignee)
		}
		if issue.ReportedBy == actor.ID {
			return allow(CapacityReporter)
		}
		return deny("You are not authorized to update this issue status")
	case ActionAssign:
		return deny("Only admins can assign volunteers")
	default:
		return deny("unknown action")
	}
}

// DefaultNote is the audit note used when the caller supplies none.
func (c Capacity) DefaultNote() string {
	switch c {
	case CapacityAdmin:
		return "Admin update"
	case CapacityAssignee:
		return "Volunteer update"
	case CapacityReporter:
		return "Reporter update"
	default:
		return ""
	}
}
