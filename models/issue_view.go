package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// IssueView is an Issue with its user references expanded to summaries.
// The outer fields shadow the embedded id fields when encoded.
type IssueView struct {
	*Issue
	ReportedBy    *UserSummary `json:"reportedBy"`
	AssignedTo    *UserSummary `json:"assignedTo"`
	StatusHistory []EventView  `json:"statusHistory"`
}

type EventView struct {
	StatusChangeEvent
	ChangedBy *UserSummary `json:"changedBy"`
}

// UserRefs returns the distinct user ids an issue references.
func (i *Issue) UserRefs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(i.StatusHistory)+2)
	refs := make([]primitive.ObjectID, 0, len(i.StatusHistory)+2)
	add := func(id primitive.ObjectID) {
		if id.IsZero() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		refs = append(refs, id)
	}
	add(i.ReportedBy)
	if i.AssignedTo != nil {
		add(*i.AssignedTo)
	}
	for _, e := range i.StatusHistory {
		add(e.ChangedBy)
	}
	return refs
}

// NewIssueView expands issue using users. A reference missing from users
// keeps its id with empty profile fields.
func NewIssueView(issue *Issue, users map[primitive.ObjectID]UserSummary) *IssueView {
	summary := func(id primitive.ObjectID) *UserSummary {
		if u, ok := users[id]; ok {
			return &u
		}
		return &UserSummary{ID: id}
	}

	view := &IssueView{
		Issue:         issue,
		ReportedBy:    summary(issue.ReportedBy),
		StatusHistory: make([]EventView, 0, len(issue.StatusHistory)),
	}
	if issue.AssignedTo != nil {
		view.AssignedTo = summary(*issue.AssignedTo)
	}
	for _, e := range issue.StatusHistory {
		view.StatusHistory = append(view.StatusHistory, EventView{StatusChangeEvent: e, ChangedBy: summary(e.ChangedBy)})
	}
	return view
}
