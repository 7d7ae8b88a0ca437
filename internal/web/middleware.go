package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labres-dev/labres/internal/router"
)

const routeKey = "route"

func respondWithError(c *gin.Context, statusCode int, err error, message string) {
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
	if err != nil {
		_ = c.Error(err)
	}
}

// guardMiddleware runs the navigation guard for the requested path. A
// redirect decision becomes a 302; an admitted navigation stores the resolved
// route for the view handler.
func (s *Server) guardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		d, err := s.guard.Navigate(c.Request.Context(), path)
		if err != nil {
			if errors.Is(err, router.ErrRouteNotFound) {
				respondWithError(c, http.StatusNotFound, err, "Page not found")
				return
			}
			s.logger.Error().Err(err).Str("path", path).Msg("Navigation failed")
			respondWithError(c, http.StatusInternalServerError, err, "Navigation failed")
			return
		}

		if !d.Allowed() {
			s.logger.Debug().
				Str("path", path).
				Str("redirect", d.Redirect).
				Str("reason", string(d.Reason)).
				Msg("Navigation redirected")
			// A 401 while fetching the session already scheduled this redirect
			s.notices.takeRedirect()
			c.Header("X-Redirect-Reason", string(d.Reason))
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
			return
		}

		// Route-level redirects ("/" and "/admin") land on the canonical URL
		if strings.TrimRight(path, "/") != strings.TrimRight(d.Target.Path, "/") {
			c.Redirect(http.StatusFound, d.Target.Path)
			c.Abort()
			return
		}

		c.Set(routeKey, d.Target)
		c.Next()
	}
}

func matchFromContext(c *gin.Context) (*router.Match, bool) {
	v, ok := c.Get(routeKey)
	if !ok {
		return nil, false
	}
	m, ok := v.(*router.Match)
	return m, ok
}
