package service

import (
	"slices"
	"strings"

	"marketplates/internal/model"
)

// OwnerOrAdmin reports whether the requester owns the resource or carries
// the Admin role. roles is the "&"-joined list found in token claims.
func OwnerOrAdmin(ownerID string, requesterID string, roles string) bool {
	if requesterID != "" && requesterID == ownerID {
		return true
	}
	return slices.Contains(strings.Split(roles, model.RoleSeparator), model.RoleAdmin)
}
