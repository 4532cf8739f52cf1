package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"rental-console/internal/auth"
	"rental-console/internal/gateway"
	"rental-console/internal/logger"
	"rental-console/internal/models"

	"go.uber.org/zap"
)

const (
	// DuplicateAccountMessage replaces backend "already exists" errors.
	DuplicateAccountMessage = "An account with that email already exists. Please sign in or reset your password."
	signupFailed            = "Signup failed. Please try again."
	rolesUnavailable        = "Failed to load roles. Please refresh the page."
	selectRole              = "Please select a role"
)

var duplicateAccount = regexp.MustCompile(`(?i)already exists|already registered|duplicate|user exists`)

// SignupErrorMessage maps a backend signup failure to the message shown to
// the user.
func SignupErrorMessage(err error) string {
	if gateway.IsConflict(err) {
		return DuplicateAccountMessage
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && duplicateAccount.MatchString(apiErr.Message) {
		return DuplicateAccountMessage
	}
	return gateway.MessageOf(err, signupFailed)
}

// SignupRoles drops the role named "user" from the choices offered at signup.
func SignupRoles(roles []models.Role) []models.Role {
	out := make([]models.Role, 0, len(roles))
	for _, r := range roles {
		if strings.ToLower(r.Name) == "user" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SignupViewModel holds data for the signup page.
type SignupViewModel struct {
	Page
	Form          SignupFormInput
	Roles         []models.Role
	PasswordError string
}

func (h *Handlers) signupRoles(r *http.Request, vm *SignupViewModel) {
	roles, err := h.backend.ListRoles(r.Context(), "")
	if err != nil {
		h.logger(r).Error("load signup roles", zap.Error(err))
		if vm.Error == "" {
			vm.Error = rolesUnavailable
		}
		return
	}
	vm.Roles = SignupRoles(roles)
}

// SignupForm renders the signup page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	vm := SignupViewModel{Page: Page{Title: "Create account"}}
	h.signupRoles(r, &vm)
	h.render(w, r, "signup.html", vm)
}

// Signup validates and submits the signup form.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	vm := SignupViewModel{Page: Page{Title: "Create account"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "signup.html", vm)
		return
	}
	vm.Form = SignupFormInput{
		FullName:        strings.TrimSpace(r.FormValue("fullName")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Phone:           strings.TrimSpace(r.FormValue("phone")),
		Address:         strings.TrimSpace(r.FormValue("address")),
		Company:         strings.TrimSpace(r.FormValue("company")),
		RoleID:          r.FormValue("roleId"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
	}

	fail := func(status int) {
		vm.Form.Password, vm.Form.ConfirmPassword = "", ""
		h.signupRoles(r, &vm)
		h.renderStatus(w, r, status, "signup.html", vm)
	}

	if vm.Form.RoleID == "" {
		vm.Error = selectRole
		fail(http.StatusBadRequest)
		return
	}
	if err := auth.ValidateSignup(vm.Form.Password, vm.Form.ConfirmPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			vm.Error = err.Error()
		} else {
			vm.PasswordError = err.Error()
		}
		fail(http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(vm.Form); err != nil {
		vm.Error = "Please fill in your name, a valid email and your phone number"
		fail(http.StatusBadRequest)
		return
	}

	if _, err := h.backend.Signup(r.Context(), vm.Form.request()); err != nil {
		h.logger(r).Info("signup rejected",
			zap.String("email", logger.MaskEmail(vm.Form.Email)),
			zap.Error(err),
		)
		vm.Error = SignupErrorMessage(err)
		status := http.StatusBadRequest
		if gateway.IsConflict(err) {
			status = http.StatusConflict
		}
		fail(status)
		return
	}

	h.logger(r).Info("signup succeeded", zap.String("email", logger.MaskEmail(vm.Form.Email)))
	http.Redirect(w, r, "/login?registered=1", http.StatusFound)
}
