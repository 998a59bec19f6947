package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the canonical actor role. Raw role strings are converted exactly
// once, at the authentication or directory boundary.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps a raw role string to a Role, yielding RoleUnknown for
// anything unrecognised.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleCitizen:
		return RoleCitizen
	case RoleVolunteer:
		return RoleVolunteer
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// Actor is an authenticated party acting on issues.
type Actor struct {
	ID   primitive.ObjectID `json:"id"`
	Role Role               `json:"role"`
}

// User is the stored account document read by the actor directory. Older
// documents carry the role under "role" instead of "userType".
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"fullName" json:"fullName"`
	Email      string             `bson:"email" json:"email"`
	UserType   string             `bson:"userType,omitempty" json:"userType,omitempty"`
	LegacyRole string             `bson:"role,omitempty" json:"-"`
}

// Actor resolves the stored role fields into the canonical Actor.
func (u User) Actor() Actor {
	raw := u.UserType
	if raw == "" {
		raw = u.LegacyRole
	}
	return Actor{ID: u.ID, Role: ParseRole(raw)}
}

// UserSummary is the public part of a user embedded in issue responses.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FullName string             `bson:"fullName" json:"fullName"`
	Email    string             `bson:"email" json:"email"`
}
