// Package guard holds the pure ownership/role checks used by services.
// A single function over (actor, resource owner, action) instead of
// per-endpoint guard types: composition happens at the call site.
package guard

import (
	"github.com/saaskit/authcore/internal/domain"
)

// Action kinds an actor may attempt on a resource
type Action string

const (
	ActionUse     Action = "USE"
	ActionElevate Action = "ELEVATE"
)

// Actor is who the request runs on behalf of
type Actor struct {
	ID   string
	Role domain.Role
}

// Allow decides whether the actor may perform action on a resource
// owned by resourceOwnerID. Admins may do anything; owners may do
// anything to their own resources except elevate their role.
func Allow(actor Actor, resourceOwnerID string, action Action) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}

	if action == ActionElevate {
		return false
	}

	return actor.ID != "" && actor.ID == resourceOwnerID
}
