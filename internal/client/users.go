package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labres-dev/labres/internal/models"
)

// Login exchanges credentials for an access token. The backend expects an
// OAuth2 password form, not JSON.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var token models.Token
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/users/login/access-token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetCurrentUser returns the user the stored credential belongs to
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users matching the optional filter
func (c *Client) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/users/",
		query:  userQuery(filter),
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser registers a single user
func (c *Client) CreateUser(ctx context.Context, in models.UserCreate) (*models.User, error) {
	req, err := jsonRequest(http.MethodPost, "/users/", in)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates the user identified by email
func (c *Client) UpdateUser(ctx context.Context, email string, in models.UserUpdate) (*models.User, error) {
	req, err := jsonRequest(http.MethodPut, fmt.Sprintf("/users/%s", url.PathEscape(email)), in)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user identified by email and returns it
func (c *Client) DeleteUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/users/%s", url.PathEscape(email)),
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// BulkCreateUsers registers a batch of users in one call
func (c *Client) BulkCreateUsers(ctx context.Context, in models.UserBulkCreate) ([]models.User, error) {
	req, err := jsonRequest(http.MethodPost, "/users/bulk-create", in)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := c.do(ctx, req, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func userQuery(f models.UserFilter) url.Values {
	q := url.Values{}
	setPaging(q, f.Skip, f.Limit)
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	if f.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*f.IsActive))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

func setPaging(q url.Values, skip, limit int) {
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
