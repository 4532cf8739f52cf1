package models

import "time"

// Session represents the currently authenticated actor.
// An empty UserID or RoleName means the value is absent.
type Session struct {
	UserID         string    `json:"user_id,omitempty"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name,omitempty"`
	RoleName       string    `json:"role_name,omitempty"`
	BearerToken    string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

// User is an account profile as returned by the backend.
type User struct {
	ID        string `json:"user_id,omitempty"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Address   string `json:"address,omitempty"`
	Company   string `json:"company,omitempty"`
	GSTNumber string `json:"gst_number,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      *Role  `json:"roles,omitempty"`
}

// RoleName returns the name of the user's role, or "" when none is assigned.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// Role is a named permission level.
type Role struct {
	ID          string `json:"role_id,omitempty"`
	Name        string `json:"role_name"`
	Level       *int   `json:"role_level,omitempty"`
	Description string `json:"description,omitempty"`
}

// RentalItem is a unit of rentable inventory in canonical form.
type RentalItem struct {
	ID             string
	Name           string
	Description    string
	Category       string
	Location       string
	OwnerUserID    string
	PricePerDay    float64
	AvailableCount int
	Images         []string
}

// Available reports whether at least one unit can be rented.
func (i RentalItem) Available() bool {
	return i.AvailableCount > 0
}

// BookingRequest is a pending order before submission.
type BookingRequest struct {
	ItemID     string  `json:"itemId"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	TotalPrice float64 `json:"totalPrice"`
}

// RentalOrder is an order persisted by the backend.
type RentalOrder struct {
	ID            string  `json:"orderId,omitempty"`
	UserID        string  `json:"userId,omitempty"`
	ItemID        string  `json:"itemId"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	TotalPrice    float64 `json:"totalPrice"`
	PaymentStatus string  `json:"paymentStatus,omitempty"`
	BookingStatus string  `json:"bookingStatus,omitempty"`
}

// Status returns the booking status, defaulting to "Pending".
func (o RentalOrder) Status() string {
	if o.BookingStatus == "" {
		return "Pending"
	}
	return o.BookingStatus
}

// SignupRequest carries a new account's profile.
type SignupRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Address  string
	Company  string
	RoleID   string
}

// LoginResponse is the backend's answer to a successful login.
// ExpiresIn is in milliseconds.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}
