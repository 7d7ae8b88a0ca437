package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/models"
	"github.com/labres-dev/labres/internal/session"
)

// recordingNavigator captures notices and redirects
type recordingNavigator struct {
	mu        sync.Mutex
	notices   []string
	redirects []string
}

func (n *recordingNavigator) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, message)
}

func (n *recordingNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, path)
}

// capturedRequest is what the fake backend saw
type capturedRequest struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Auth        string
	RequestID   string
	Body        []byte
}

// fakeBackend answers every request with the same status and body, recording each call
type fakeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
}

func newFakeBackend(t *testing.T, status int, body string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{status: status, body: body}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, capturedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.Query(),
			ContentType: r.Header.Get("Content-Type"),
			Auth:        r.Header.Get("Authorization"),
			RequestID:   r.Header.Get("X-Request-ID"),
			Body:        data,
		})
		fb.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fb.status)
		_, _ = w.Write([]byte(fb.body))
	}))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) calls() []capturedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]capturedRequest(nil), fb.requests...)
}

const (
	userJSON         = `{"id":7,"email":"ada@lab.org","full_name":"Ada","role":"student","is_active":true}`
	usersJSON        = `[` + userJSON + `,{"id":8,"email":"root@lab.org","role":"admin","is_active":true}]`
	instrumentJSON   = `{"id":3,"name":"Confocal","model":"LSM 980","location":"B2.14","is_active":true,"status":"available"}`
	instrumentsJSON  = `[` + instrumentJSON + `]`
	reservationJSON  = `{"id":11,"start_time":"2025-03-01T09:00:00","end_time":"2025-03-01T10:00:00","instrument_id":3,"status":"approved","user_id":7,"user":` + userJSON + `,"instrument":` + instrumentJSON + `}`
	reservationsJSON = `[` + reservationJSON + `]`
	tokenJSON        = `{"access_token":"abc.def.ghi","token_type":"bearer"}`
)

func decodeAs[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestEndpoints_OneCallPerFunction(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	active := true

	tests := []struct {
		name        string
		body        string
		call        func(c *Client) (interface{}, error)
		expected    func(t *testing.T, body string) interface{}
		method      string
		path        string
		query       url.Values
		contentType string
	}{
		{
			name:        "login",
			body:        tokenJSON,
			call:        func(c *Client) (interface{}, error) { return c.Login(ctx, "ada@lab.org", "pw") },
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.Token](t, b); return &v },
			method:      http.MethodPost,
			path:        "/api/v1/users/login/access-token",
			contentType: "application/x-www-form-urlencoded",
		},
		{
			name:     "get current user",
			body:     userJSON,
			call:     func(c *Client) (interface{}, error) { return c.GetCurrentUser(ctx) },
			expected: func(t *testing.T, b string) interface{} { v := decodeAs[models.User](t, b); return &v },
			method:   http.MethodGet,
			path:     "/api/v1/users/me",
		},
		{
			name: "list users with filters",
			body: usersJSON,
			call: func(c *Client) (interface{}, error) {
				return c.ListUsers(ctx, models.UserFilter{Role: models.RoleAdmin, IsActive: &active, Limit: 50})
			},
			expected: func(t *testing.T, b string) interface{} { return decodeAs[[]models.User](t, b) },
			method:   http.MethodGet,
			path:     "/api/v1/users/",
			query:    url.Values{"role": {"admin"}, "is_active": {"true"}, "limit": {"50"}},
		},
		{
			name: "create user",
			body: userJSON,
			call: func(c *Client) (interface{}, error) {
				return c.CreateUser(ctx, models.UserCreate{Email: "ada@lab.org", Role: models.RoleStudent, Password: "pw"})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.User](t, b); return &v },
			method:      http.MethodPost,
			path:        "/api/v1/users/",
			contentType: "application/json",
		},
		{
			name: "update user",
			body: userJSON,
			call: func(c *Client) (interface{}, error) {
				return c.UpdateUser(ctx, "ada@lab.org", models.UserUpdate{IsActive: &active})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.User](t, b); return &v },
			method:      http.MethodPut,
			path:        "/api/v1/users/ada@lab.org",
			contentType: "application/json",
		},
		{
			name:     "delete user",
			body:     userJSON,
			call:     func(c *Client) (interface{}, error) { return c.DeleteUser(ctx, "ada@lab.org") },
			expected: func(t *testing.T, b string) interface{} { v := decodeAs[models.User](t, b); return &v },
			method:   http.MethodDelete,
			path:     "/api/v1/users/ada@lab.org",
		},
		{
			name: "bulk create users",
			body: usersJSON,
			call: func(c *Client) (interface{}, error) {
				return c.BulkCreateUsers(ctx, models.UserBulkCreate{Users: []models.UserCreate{{Email: "a@lab.org", Role: models.RoleStudent, Password: "p"}}})
			},
			expected:    func(t *testing.T, b string) interface{} { return decodeAs[[]models.User](t, b) },
			method:      http.MethodPost,
			path:        "/api/v1/users/bulk-create",
			contentType: "application/json",
		},
		{
			name:     "list instruments",
			body:     instrumentsJSON,
			call:     func(c *Client) (interface{}, error) { return c.ListInstruments(ctx, models.InstrumentFilter{}) },
			expected: func(t *testing.T, b string) interface{} { return decodeAs[[]models.Instrument](t, b) },
			method:   http.MethodGet,
			path:     "/api/v1/instruments/",
		},
		{
			name:     "get instrument",
			body:     instrumentJSON,
			call:     func(c *Client) (interface{}, error) { return c.GetInstrument(ctx, 3) },
			expected: func(t *testing.T, b string) interface{} { v := decodeAs[models.Instrument](t, b); return &v },
			method:   http.MethodGet,
			path:     "/api/v1/instruments/3",
		},
		{
			name: "create instrument",
			body: instrumentJSON,
			call: func(c *Client) (interface{}, error) {
				return c.CreateInstrument(ctx, models.InstrumentCreate{Name: "Confocal", Location: "B2.14"})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.Instrument](t, b); return &v },
			method:      http.MethodPost,
			path:        "/api/v1/instruments/",
			contentType: "application/json",
		},
		{
			name: "update instrument",
			body: instrumentJSON,
			call: func(c *Client) (interface{}, error) {
				return c.UpdateInstrument(ctx, 3, models.InstrumentUpdate{IsActive: &active})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.Instrument](t, b); return &v },
			method:      http.MethodPut,
			path:        "/api/v1/instruments/3",
			contentType: "application/json",
		},
		{
			name:     "delete instrument",
			body:     instrumentJSON,
			call:     func(c *Client) (interface{}, error) { return c.DeleteInstrument(ctx, 3) },
			expected: func(t *testing.T, b string) interface{} { v := decodeAs[models.Instrument](t, b); return &v },
			method:   http.MethodDelete,
			path:     "/api/v1/instruments/3",
		},
		{
			name:     "list reservations by instrument",
			body:     reservationsJSON,
			call:     func(c *Client) (interface{}, error) { return c.ListInstrumentReservations(ctx, 3) },
			expected: func(t *testing.T, b string) interface{} { return decodeAs[[]models.Reservation](t, b) },
			method:   http.MethodGet,
			path:     "/api/v1/reservations/instrument/3",
		},
		{
			name: "create reservation",
			body: reservationJSON,
			call: func(c *Client) (interface{}, error) {
				return c.CreateReservation(ctx, models.ReservationCreate{StartTime: start, EndTime: start.Add(time.Hour), InstrumentID: 3})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.Reservation](t, b); return &v },
			method:      http.MethodPost,
			path:        "/api/v1/reservations/",
			contentType: "application/json",
		},
		{
			name: "list my reservations with filters",
			body: reservationsJSON,
			call: func(c *Client) (interface{}, error) {
				return c.ListMyReservations(ctx, models.ReservationFilter{Status: models.ReservationApproved, StartFrom: start})
			},
			expected: func(t *testing.T, b string) interface{} { return decodeAs[[]models.Reservation](t, b) },
			method:   http.MethodGet,
			path:     "/api/v1/reservations/my-reservations",
			query:    url.Values{"status": {"approved"}, "start_from": {"2025-03-01T09:00:00Z"}},
		},
		{
			name:     "cancel reservation",
			body:     reservationJSON,
			call:     func(c *Client) (interface{}, error) { return c.CancelReservation(ctx, 11) },
			expected: func(t *testing.T, b string) interface{} { v := decodeAs[models.Reservation](t, b); return &v },
			method:   http.MethodDelete,
			path:     "/api/v1/reservations/11",
		},
		{
			name: "list all reservations with filters",
			body: reservationsJSON,
			call: func(c *Client) (interface{}, error) {
				return c.ListAllReservations(ctx, models.ReservationFilter{InstrumentID: 3, UserEmail: "ada@lab.org", Skip: 10})
			},
			expected: func(t *testing.T, b string) interface{} { return decodeAs[[]models.Reservation](t, b) },
			method:   http.MethodGet,
			path:     "/api/v1/reservations/all",
			query:    url.Values{"instrument_id": {"3"}, "user_email": {"ada@lab.org"}, "skip": {"10"}},
		},
		{
			name: "grant permission",
			body: userJSON,
			call: func(c *Client) (interface{}, error) {
				return c.GrantPermission(ctx, models.PermissionGrant{InstrumentID: 3, UserEmail: "ada@lab.org"})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.User](t, b); return &v },
			method:      http.MethodPost,
			path:        "/api/v1/permissions/grant",
			contentType: "application/json",
		},
		{
			name: "revoke permission",
			body: userJSON,
			call: func(c *Client) (interface{}, error) {
				return c.RevokePermission(ctx, models.PermissionGrant{InstrumentID: 3, UserEmail: "ada@lab.org"})
			},
			expected:    func(t *testing.T, b string) interface{} { v := decodeAs[models.User](t, b); return &v },
			method:      http.MethodPost,
			path:        "/api/v1/permissions/revoke",
			contentType: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, http.StatusOK, tt.body)
			tokens := auth.NewMemoryStore()
			require.NoError(t, tokens.SaveToken("tok"))
			c := New(backend.URL, tokens)

			got, err := tt.call(c)
			require.NoError(t, err)
			assert.Equal(t, tt.expected(t, tt.body), got)

			calls := backend.calls()
			require.Len(t, calls, 1, "exactly one HTTP call per API function")
			assert.Equal(t, tt.method, calls[0].Method)
			assert.Equal(t, tt.path, calls[0].Path)
			assert.Equal(t, "Bearer tok", calls[0].Auth)
			assert.NotEmpty(t, calls[0].RequestID)
			if tt.query != nil {
				assert.Equal(t, tt.query, calls[0].Query)
			} else {
				assert.Empty(t, calls[0].Query)
			}
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, calls[0].ContentType)
			}
		})
	}
}

func TestLogin_SubmitsForm(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, tokenJSON)
	c := New(backend.URL, auth.NewMemoryStore())

	token, err := c.Login(context.Background(), "ada@lab.org", "p@ss word")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token.AccessToken)

	calls := backend.calls()
	require.Len(t, calls, 1)
	form, err := url.ParseQuery(string(calls[0].Body))
	require.NoError(t, err)
	assert.Equal(t, "ada@lab.org", form.Get("username"))
	assert.Equal(t, "p@ss word", form.Get("password"))
}

func TestRequestInterceptor_NoTokenSendsUnauthenticated(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, instrumentsJSON)
	c := New(backend.URL, auth.NewMemoryStore())

	_, err := c.ListInstruments(context.Background(), models.InstrumentFilter{})
	require.NoError(t, err)

	calls := backend.calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Auth)
}

func TestRequestInterceptor_SurvivesSetHTTPClient(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, userJSON)
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken("custom"))

	c := New(backend.URL, tokens)
	c.SetHTTPClient(&http.Client{Timeout: time.Second})

	_, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer custom", backend.calls()[0].Auth)
}

func TestResponseInterceptor_401ClearsCredentialAndSession(t *testing.T) {
	backend := newFakeBackend(t, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken("stale"))
	sess := session.NewStore(tokens)
	sess.SetUser(&models.User{Email: "root@lab.org", Role: models.RoleAdmin})

	nav := &recordingNavigator{}
	var scheduledDelay time.Duration
	c := New(backend.URL, tokens,
		WithSession(sess),
		WithNavigator(nav),
		WithRedirectDelay(2*time.Second),
		WithScheduler(func(d time.Duration, f func()) {
			scheduledDelay = d
			f()
		}),
	)

	_, err := c.ListAllReservations(context.Background(), models.ReservationFilter{})
	require.Error(t, err, "the original caller must still see the failure")
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Contains(t, err.Error(), "Could not validate credentials")

	assert.False(t, auth.HasToken(tokens))
	assert.False(t, sess.IsAuthenticated())
	assert.False(t, sess.IsAdmin())
	assert.Nil(t, sess.User())

	assert.Equal(t, []string{SessionExpiredMessage}, nav.notices)
	assert.Equal(t, []string{DefaultLoginPath}, nav.redirects)
	assert.Equal(t, 2*time.Second, scheduledDelay)
}

func TestResponseInterceptor_RedirectIsDelayed(t *testing.T) {
	backend := newFakeBackend(t, http.StatusUnauthorized, `{"detail":"expired"}`)
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken("stale"))

	nav := &recordingNavigator{}
	c := New(backend.URL, tokens, WithNavigator(nav), WithRedirectDelay(20*time.Millisecond), WithLoginPath("/signin"))

	_, err := c.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.False(t, auth.HasToken(tokens))

	assert.Eventually(t, func() bool {
		nav.mu.Lock()
		defer nav.mu.Unlock()
		return len(nav.redirects) == 1 && nav.redirects[0] == "/signin"
	}, time.Second, 5*time.Millisecond)
}

func TestResponseInterceptor_OtherErrorsLeaveSessionAlone(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError} {
		backend := newFakeBackend(t, status, `{"detail":"nope"}`)
		tokens := auth.NewMemoryStore()
		require.NoError(t, tokens.SaveToken("tok"))
		sess := session.NewStore(tokens)
		sess.SetUser(&models.User{Email: "ada@lab.org", Role: models.RoleStudent})
		nav := &recordingNavigator{}

		c := New(backend.URL, tokens, WithSession(sess), WithNavigator(nav))
		_, err := c.GetInstrument(context.Background(), 1)

		require.Error(t, err)
		assert.Equal(t, status, StatusCode(err))
		assert.False(t, IsUnauthorized(err))
		assert.True(t, auth.HasToken(tokens))
		assert.True(t, sess.IsAuthenticated())
		assert.Empty(t, nav.notices)
	}
}

func TestAPIError_Sentinels(t *testing.T) {
	assert.True(t, errors.Is(&APIError{StatusCode: 404}, ErrNotFound))
	assert.True(t, errors.Is(&APIError{StatusCode: 403}, ErrForbidden))
	assert.True(t, errors.Is(&APIError{StatusCode: 409}, ErrConflict))
	assert.False(t, errors.Is(&APIError{StatusCode: 500}, ErrNotFound))
	assert.Equal(t, 0, StatusCode(errors.New("dial tcp: refused")))
}

func TestParseDetail(t *testing.T) {
	assert.Equal(t, "Instrument not found", parseDetail([]byte(`{"detail":"Instrument not found"}`)))
	assert.Equal(t,
		"end_time: End time must be after start time; instrument_id: field required",
		parseDetail([]byte(`{"detail":[{"loc":["body","end_time"],"msg":"End time must be after start time"},{"loc":["body","instrument_id"],"msg":"field required"}]}`)),
	)
	assert.Equal(t, "Internal Server Error", parseDetail([]byte("Internal Server Error\n")))
}

func TestTransportError_Propagates(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, "[]")
	serverURL := backend.URL
	backend.Close()

	c := New(serverURL, auth.NewMemoryStore())
	_, err := c.ListInstruments(context.Background(), models.InstrumentFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send request")
	assert.Equal(t, 0, StatusCode(err))
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8000/api/v1", normalizeBaseURL("http://127.0.0.1:8000"))
	assert.Equal(t, "http://127.0.0.1:8000/api/v1", normalizeBaseURL("http://127.0.0.1:8000/"))
	assert.Equal(t, "http://127.0.0.1:8000/api/v1", normalizeBaseURL("http://127.0.0.1:8000/api/v1/"))
}
