package client

import (
	"context"
	"net/http"

	"github.com/labres-dev/labres/internal/models"
)

// GrantPermission allows a user to reserve an instrument
func (c *Client) GrantPermission(ctx context.Context, in models.PermissionGrant) (*models.User, error) {
	return c.permission(ctx, "/permissions/grant", in)
}

// RevokePermission withdraws a user's access to an instrument
func (c *Client) RevokePermission(ctx context.Context, in models.PermissionGrant) (*models.User, error) {
	return c.permission(ctx, "/permissions/revoke", in)
}

func (c *Client) permission(ctx context.Context, path string, in models.PermissionGrant) (*models.User, error) {
	req, err := jsonRequest(http.MethodPost, path, in)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
