package handlers

import (
	"net/http"
	"strings"

	"rental-console/internal/auth"
	"rental-console/internal/gateway"
	"rental-console/internal/models"

	"go.uber.org/zap"
)

const (
	rolesLoadFailed  = "Failed to load roles"
	roleSaveFailed   = "Failed to save role"
	roleDeleteFailed = "Failed to delete role"
)

// RolesViewModel is the data passed to the roles table.
type RolesViewModel struct {
	Page
	Roles []models.Role
}

// RoleFormViewModel is the data passed to the role create/edit form.
type RoleFormViewModel struct {
	Page
	RoleID string
	Form   RoleFormInput
	IsEdit bool
}

// requireRoleManager renders the Unauthorized page and reports false when the
// session may not manage roles.
func (h *Handlers) requireRoleManager(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sess := GetSessionFromContext(r)
	if !auth.Allow(sess, auth.ManageRoles, "") {
		h.forbidden(w, r)
		return nil, false
	}
	return sess, true
}

// ListRoles renders the role table.
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireRoleManager(w, r)
	if !ok {
		return
	}
	vm := RolesViewModel{Page: newPage(r, "Roles")}
	roles, err := h.backend.ListRoles(r.Context(), sess.BearerToken)
	if err != nil {
		h.logger(r).Error("list roles", zap.Error(err))
		vm.Error = rolesLoadFailed
	}
	vm.Roles = roles
	if r.URL.Query().Get("deleted") == "0" {
		vm.Error = roleDeleteFailed
	}
	h.render(w, r, "roles.html", vm)
}

// NewRoleForm renders an empty role form.
func (h *Handlers) NewRoleForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRoleManager(w, r); !ok {
		return
	}
	h.render(w, r, "role_form.html", RoleFormViewModel{Page: newPage(r, "New role")})
}

// EditRoleForm renders the form for an existing role.
func (h *Handlers) EditRoleForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireRoleManager(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	role, err := h.backend.GetRole(r.Context(), sess.BearerToken, id)
	if err != nil {
		h.logger(r).Error("get role", zap.String("role_id", id), zap.Error(err))
		http.Error(w, gateway.MessageOf(err, "Role not found"), http.StatusNotFound)
		return
	}
	form := RoleFormInput{Name: role.Name, Description: role.Description}
	if role.Level != nil {
		form.Level = itoa(*role.Level)
	}
	h.render(w, r, "role_form.html", RoleFormViewModel{
		Page:   newPage(r, "Edit role"),
		RoleID: id,
		Form:   form,
		IsEdit: true,
	})
}

// CreateRole handles POST /roles.
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	h.saveRole(w, r, "")
}

// UpdateRole handles POST /roles/{id}.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	h.saveRole(w, r, r.PathValue("id"))
}

func (h *Handlers) saveRole(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.requireRoleManager(w, r)
	if !ok {
		return
	}
	vm := RoleFormViewModel{Page: newPage(r, "New role"), RoleID: id, IsEdit: id != ""}
	if vm.IsEdit {
		vm.Title = "Edit role"
	}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "role_form.html", vm)
		return
	}
	vm.Form = RoleFormInput{
		Name:        strings.TrimSpace(r.FormValue("role_name")),
		Level:       strings.TrimSpace(r.FormValue("role_level")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := h.validate.Struct(vm.Form); err != nil {
		vm.Error = "Role name is required and level must be a number"
		h.renderStatus(w, r, http.StatusBadRequest, "role_form.html", vm)
		return
	}

	role := vm.Form.role(id)
	var err error
	if vm.IsEdit {
		_, err = h.backend.UpdateRole(r.Context(), sess.BearerToken, role)
	} else {
		_, err = h.backend.CreateRole(r.Context(), sess.BearerToken, role)
	}
	if err != nil {
		h.logger(r).Error("save role", zap.String("role_id", id), zap.Error(err))
		vm.Error = gateway.MessageOf(err, roleSaveFailed)
		h.renderStatus(w, r, http.StatusBadGateway, "role_form.html", vm)
		return
	}
	http.Redirect(w, r, "/roles", http.StatusSeeOther)
}

// DeleteRole handles POST /roles/{id}/delete.
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireRoleManager(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := h.backend.DeleteRole(r.Context(), sess.BearerToken, id); err != nil {
		h.logger(r).Error("delete role", zap.String("role_id", id), zap.Error(err))
		http.Redirect(w, r, "/roles?deleted=0", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/roles", http.StatusSeeOther)
}
