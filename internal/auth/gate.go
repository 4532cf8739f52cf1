// Package auth holds the authorization gate, token helpers and the
// signup password rules shared by the web console and the signup CLI.
package auth

import (
	"strings"

	"rental-console/internal/models"
)

// Action is a protected operation checked by Allow.
type Action int

const (
	// ManageRoles covers viewing the roles page and creating, editing or deleting roles.
	ManageRoles Action = iota + 1
	// ViewAdminDashboardCard covers the admin-only dashboard card and quick action.
	ViewAdminDashboardCard
	// EditItem covers editing and deleting a rental item.
	EditItem
)

func (a Action) String() string {
	switch a {
	case ManageRoles:
		return "manage-roles"
	case ViewAdminDashboardCard:
		return "view-admin-dashboard-card"
	case EditItem:
		return "edit-item"
	default:
		return "unknown"
	}
}

// IsAdmin reports whether roleName names the admin role.
// Only case is folded; surrounding whitespace is significant.
func IsAdmin(roleName string) bool {
	return strings.ToLower(roleName) == "admin"
}

// Allow decides whether the session may perform action. ownerUserID is
// only consulted for EditItem.
func Allow(s *models.Session, action Action, ownerUserID string) bool {
	if s == nil {
		return false
	}
	switch action {
	case ManageRoles, ViewAdminDashboardCard:
		return IsAdmin(s.RoleName)
	case EditItem:
		return s.UserID != "" && s.UserID == ownerUserID
	default:
		return false
	}
}

// CanManageRoles is Allow(s, ManageRoles, "").
func CanManageRoles(s *models.Session) bool {
	return Allow(s, ManageRoles, "")
}

// CanViewAdminCard is Allow(s, ViewAdminDashboardCard, "").
func CanViewAdminCard(s *models.Session) bool {
	return Allow(s, ViewAdminDashboardCard, "")
}

// CanEditItem is Allow(s, EditItem, item.OwnerUserID).
func CanEditItem(s *models.Session, item models.RentalItem) bool {
	return Allow(s, EditItem, item.OwnerUserID)
}
