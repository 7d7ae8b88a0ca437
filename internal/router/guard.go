package router

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/models"
	"github.com/labres-dev/labres/internal/session"
)

// Reason explains why a navigation was redirected
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonSessionInvalid       Reason = "session-invalid"
	ReasonAdminRequired        Reason = "admin-required"
	ReasonLoginRequired        Reason = "login-required"
	ReasonAlreadyAuthenticated Reason = "already-authenticated"
)

// UserFetcher loads the user the stored credential belongs to
type UserFetcher interface {
	GetCurrentUser(ctx context.Context) (*models.User, error)
}

// Decision is the outcome of one navigation attempt
type Decision struct {
	// Target is the resolved destination that was requested
	Target *Match
	// Redirect is empty when the navigation is allowed
	Redirect string
	Reason   Reason
}

// Allowed reports whether navigation to Target may proceed
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

func redirect(to *Match, path string, reason Reason) Decision {
	return Decision{Target: to, Redirect: path, Reason: reason}
}

// Guard decides every navigation: resolve the route, lazily load the session,
// then authorize
type Guard struct {
	routes  *Table
	session *session.Store
	fetcher UserFetcher
	logger  zerolog.Logger
}

// NewGuard creates a guard over the given route table and session
func NewGuard(routes *Table, sess *session.Store, fetcher UserFetcher, logger zerolog.Logger) *Guard {
	return &Guard{
		routes:  routes,
		session: sess,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "guard").Logger(),
	}
}

// Navigate runs the guard for a navigation to path
func (g *Guard) Navigate(ctx context.Context, path string) (Decision, error) {
	to, err := g.routes.Resolve(path)
	if err != nil {
		return Decision{}, err
	}

	if d, stop := g.fetchSession(ctx, to); stop {
		return d, nil
	}

	d := g.authorize(to)
	if !d.Allowed() {
		g.logger.Debug().
			Str("path", to.Path).
			Str("redirect", d.Redirect).
			Str("reason", string(d.Reason)).
			Msg("Navigation redirected")
	}
	return d, nil
}

// fetchSession loads the current user when a credential is stored but the
// session has not been populated yet. Any failure counts as not authenticated.
func (g *Guard) fetchSession(ctx context.Context, to *Match) (Decision, bool) {
	if g.session.IsAuthenticated() || !auth.HasToken(g.session.Tokens()) {
		return Decision{}, false
	}

	user, err := g.fetcher.GetCurrentUser(ctx)
	if err == nil {
		g.session.SetUser(user)
		g.logger.Debug().Str("email", user.Email).Str("role", string(user.Role)).Msg("Session restored")
		return Decision{}, false
	}

	g.logger.Info().Err(err).Msg("Stored credential rejected, clearing session")
	if logoutErr := g.session.Logout(); logoutErr != nil {
		g.logger.Warn().Err(logoutErr).Msg("Failed to clear stored credential")
	}

	if to.Meta.RequiresAuth {
		return redirect(to, LoginPath, ReasonSessionInvalid), true
	}
	return Decision{}, false
}

// authorize applies the route requirements in order: admin, then auth, then
// the already-logged-in check for the login page
func (g *Guard) authorize(to *Match) Decision {
	snap := g.session.Snapshot()

	if to.Meta.RequiresAdmin && !snap.IsAdmin {
		return redirect(to, DashboardPath, ReasonAdminRequired)
	}

	if to.Meta.RequiresAuth && !snap.IsAuthenticated {
		return redirect(to, LoginPath, ReasonLoginRequired)
	}

	if to.Path == LoginPath && snap.IsAuthenticated {
		return redirect(to, DashboardPath, ReasonAlreadyAuthenticated)
	}

	return Decision{Target: to}
}
