package web

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labres-dev/labres/internal/client"
	"github.com/labres-dev/labres/internal/models"
	"github.com/labres-dev/labres/internal/router"
	"github.com/labres-dev/labres/internal/views"
)

// LoginForm is the form posted by the login view
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// ViewQuery are the list filters a view accepts in its query string
type ViewQuery struct {
	Skip         int        `form:"skip" binding:"omitempty,min=0"`
	Limit        int        `form:"limit" binding:"omitempty,min=0"`
	Status       string     `form:"status" binding:"omitempty,oneof=pending approved cancelled completed missed"`
	InstrumentID int        `form:"instrument_id" binding:"omitempty,min=1"`
	UserEmail    string     `form:"user_email" binding:"omitempty,email"`
	StartFrom    *time.Time `form:"start_from" time_format:"2006-01-02T15:04:05Z07:00"`
	EndBefore    *time.Time `form:"end_before" time_format:"2006-01-02T15:04:05Z07:00"`
	Role         string     `form:"role" binding:"omitempty,oneof=admin teacher student"`
	IsActive     *bool      `form:"is_active"`
	Search       string     `form:"search"`
}

func (q ViewQuery) toViews() views.Query {
	out := views.Query{
		Reservations: models.ReservationFilter{
			Status:       models.ReservationStatus(q.Status),
			InstrumentID: q.InstrumentID,
			UserEmail:    q.UserEmail,
			Skip:         q.Skip,
			Limit:        q.Limit,
		},
		Users: models.UserFilter{
			Skip:     q.Skip,
			Limit:    q.Limit,
			Role:     models.Role(q.Role),
			IsActive: q.IsActive,
			Search:   q.Search,
		},
		Instruments: models.InstrumentFilter{Skip: q.Skip, Limit: q.Limit},
	}
	if q.StartFrom != nil {
		out.Reservations.StartFrom = *q.StartFrom
	}
	if q.EndBefore != nil {
		out.Reservations.EndBefore = *q.EndBefore
	}
	return out
}

// ViewResponse is a loaded view plus any pending notice
type ViewResponse struct {
	*views.View
	Notice string `json:"notice,omitempty"`
}

func (s *Server) showView(c *gin.Context) {
	m, ok := matchFromContext(c)
	if !ok {
		respondWithError(c, http.StatusInternalServerError, nil, "Route not resolved")
		return
	}

	var q ViewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := views.Load(c.Request.Context(), s.api, m, s.session.User(), q.toViews())
	if err != nil {
		s.respondWithAPIError(c, err, "Failed to load view")
		return
	}

	c.JSON(http.StatusOK, ViewResponse{View: view, Notice: s.notices.take()})
}

// respondWithAPIError forwards backend client errors (4xx) and reports
// everything else as a bad gateway
func (s *Server) respondWithAPIError(c *gin.Context, err error, message string) {
	status := client.StatusCode(err)
	if status < 400 || status >= 500 {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
		status = http.StatusBadGateway
	}
	if path, delay := s.notices.takeRedirect(); path != "" {
		s.applyPendingRedirect(c, status, err, path, delay)
		return
	}
	respondWithError(c, status, err, err.Error())
}

// applyPendingRedirect answers a request whose backend call expired the
// session. The notice is shown right away and the browser moves to path once
// the delay has passed.
func (s *Server) applyPendingRedirect(c *gin.Context, status int, err error, path string, delay time.Duration) {
	c.Header("Refresh", fmt.Sprintf("%d; url=%s", int(math.Ceil(delay.Seconds())), path))
	c.JSON(status, gin.H{"error": err.Error(), "notice": s.notices.take(), "redirect": path})
	c.Abort()
	_ = c.Error(err)
}

// login exchanges the posted credentials for a token, loads the user and
// sends the browser to the dashboard
func (s *Server) login(c *gin.Context) {
	if s.session.IsAuthenticated() {
		c.Redirect(http.StatusFound, router.DashboardPath)
		return
	}

	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.api.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", form.Email).Msg("Login failed")
		s.respondWithAPIError(c, err, "Login failed")
		return
	}
	if err := s.tokens.SaveToken(token.AccessToken); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save token")
		respondWithError(c, http.StatusInternalServerError, err, "Failed to save token")
		return
	}

	user, err := s.api.GetCurrentUser(c.Request.Context())
	if err != nil {
		s.respondWithAPIError(c, err, "Failed to load user profile")
		return
	}
	s.session.SetUser(user)

	s.logger.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("User logged in")
	c.Redirect(http.StatusFound, router.DashboardPath)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.session.Logout(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to remove stored credential")
	}
	c.Redirect(http.StatusFound, router.LoginPath)
}
