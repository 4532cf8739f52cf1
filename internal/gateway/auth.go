package gateway

import (
	"context"
	"errors"
	"net/http"

	"rental-console/internal/models"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var out models.LoginResponse
	if err := c.doJSON(ctx, "Login", http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &out, nil
}

// Signup registers a new account. The profile carries roles.role_id.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	in := signupPayload{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		Company:  req.Company,
	}
	in.Roles.RoleID = req.RoleID

	var out wireUser
	if err := c.doJSON(ctx, "Signup", http.MethodPost, "/auth/signup", "", in, &out); err != nil {
		return nil, err
	}
	u := out.toModel()
	return &u, nil
}

// Me fetches the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var out wireUser
	if err := c.doJSON(ctx, "Me", http.MethodGet, "/v1/hars/user/me", token, nil, &out); err != nil {
		return nil, err
	}
	u := out.toModel()
	return &u, nil
}
