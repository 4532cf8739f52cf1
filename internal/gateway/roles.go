package gateway

import (
	"context"
	"net/http"

	"rental-console/internal/models"
)

// ListRoles returns every role. token may be empty while signing up.
func (c *Client) ListRoles(ctx context.Context, token string) ([]models.Role, error) {
	var out []wireRole
	if err := c.doJSON(ctx, "ListRoles", http.MethodGet, "/v1/hars/roles/get/all", token, nil, &out); err != nil {
		return nil, err
	}
	roles := make([]models.Role, 0, len(out))
	for _, r := range out {
		roles = append(roles, r.toModel())
	}
	return roles, nil
}

func (c *Client) GetRole(ctx context.Context, token, id string) (*models.Role, error) {
	var out wireRole
	if err := c.doJSON(ctx, "GetRole", http.MethodGet, "/v1/hars/roles/get"+pathID(id), token, nil, &out); err != nil {
		return nil, err
	}
	r := out.toModel()
	return &r, nil
}

func (c *Client) CreateRole(ctx context.Context, token string, role models.Role) (*models.Role, error) {
	role.ID = ""
	return c.writeRole(ctx, "CreateRole", "/v1/hars/roles/create", token, role)
}

// UpdateRole posts the full role; the backend keys it by role_id.
func (c *Client) UpdateRole(ctx context.Context, token string, role models.Role) (*models.Role, error) {
	return c.writeRole(ctx, "UpdateRole", "/v1/hars/roles/update", token, role)
}

func (c *Client) writeRole(ctx context.Context, op, path, token string, role models.Role) (*models.Role, error) {
	var out wireRole
	if err := c.doJSON(ctx, op, http.MethodPost, path, token, newRolePayload(role), &out); err != nil {
		return nil, err
	}
	r := out.toModel()
	if r.Name == "" {
		r = role
	}
	return &r, nil
}

func (c *Client) DeleteRole(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, "DeleteRole", http.MethodDelete, "/v1/hars/roles/delete"+pathID(id), token, nil, nil)
}
