package handlers

import (
	"math"
	"strconv"
	"strings"

	"rental-console/internal/models"
)

// LoginFormInput is the submitted login form.
type LoginFormInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// SignupFormInput is the submitted signup form. Password rules live in
// auth.ValidateSignup so the messages match the terminal flow.
type SignupFormInput struct {
	FullName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"required"`
	Address         string
	Company         string
	RoleID          string
	Password        string
	ConfirmPassword string
}

func (f SignupFormInput) request() models.SignupRequest {
	return models.SignupRequest{
		Email:    f.Email,
		Password: f.Password,
		FullName: f.FullName,
		Phone:    f.Phone,
		Address:  f.Address,
		Company:  f.Company,
		RoleID:   f.RoleID,
	}
}

// RoleFormInput is the submitted role form.
type RoleFormInput struct {
	Name        string `validate:"required,max=64"`
	Level       string `validate:"omitempty,number"`
	Description string `validate:"max=255"`
}

func (f RoleFormInput) role(id string) models.Role {
	role := models.Role{ID: id, Name: f.Name, Description: f.Description}
	if n, err := strconv.Atoi(f.Level); err == nil {
		role.Level = &n
	}
	return role
}

// ItemFormInput is the submitted rental item form.
type ItemFormInput struct {
	Name        string  `validate:"required,max=120"`
	Description string  `validate:"max=2000"`
	Category    string  `validate:"max=64"`
	Location    string  `validate:"max=255"`
	PricePerDay float64 `validate:"gte=0"`
	Available   int     `validate:"gte=0"`
}

func (f ItemFormInput) item(id, owner string, images []string) models.RentalItem {
	return models.RentalItem{
		ID:             id,
		Name:           f.Name,
		Description:    f.Description,
		Category:       f.Category,
		Location:       f.Location,
		OwnerUserID:    owner,
		PricePerDay:    f.PricePerDay,
		AvailableCount: f.Available,
		Images:         images,
	}
}

func itemFormFrom(item models.RentalItem) ItemFormInput {
	return ItemFormInput{
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Location:    item.Location,
		PricePerDay: item.PricePerDay,
		Available:   item.AvailableCount,
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	return v
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return v
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
