package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/auth"
	cliconfig "github.com/labres-dev/labres/internal/cli/config"
	"github.com/labres-dev/labres/internal/cli/serverselect"
	"github.com/labres-dev/labres/internal/client"
	"github.com/labres-dev/labres/internal/config"
	"github.com/labres-dev/labres/internal/logger"
	"github.com/labres-dev/labres/internal/router"
	"github.com/labres-dev/labres/internal/session"
)

// Annotation keys understood by the root command
const (
	// AnnotationRoute binds a command to the route it acts on. ":id" is
	// replaced by the first positional argument.
	AnnotationRoute = "route"
	// AnnotationOffline marks commands that never talk to the backend
	AnnotationOffline = "offline"
)

var (
	ErrLoginRequired        = errors.New("not logged in. Run 'labres login' first")
	ErrSessionInvalid       = errors.New("stored session is no longer valid. Run 'labres login' again")
	ErrAdminRequired        = errors.New("this command requires an administrator account")
	ErrAlreadyAuthenticated = errors.New("already logged in")
)

// App is everything a command needs to talk to the backend. It is built once
// per invocation by Init, or handed ready-made to the commands by Wire.
type App struct {
	Config    *config.Config
	ServerURL string
	Tokens    auth.TokenStore
	Session   *session.Store
	API       *client.Client
	Guard     *router.Guard
	Logger    zerolog.Logger

	// Err receives notices that are not command output
	Err io.Writer

	navigator *terminalNavigator
}

// LoadConfig reads the environment configuration and installs the logger.
// Commands that never reach the backend stop here.
func (a *App) LoadConfig() error {
	if a.Config != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.Config = cfg

	if a.Err == nil {
		a.Err = os.Stderr
	}
	a.Logger = logger.Init(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return nil
}

// Init resolves the backend and wires the token store, session, client and
// guard for it
func (a *App) Init(serverAlias string) error {
	if a.API != nil {
		return nil
	}
	if err := a.LoadConfig(); err != nil {
		return err
	}

	serverURL, err := resolveServerURL(a.Config, serverAlias, a.Logger)
	if err != nil {
		return err
	}

	tokens, err := a.Config.Credentials.TokenStore(serverURL)
	if err != nil {
		return err
	}

	a.Wire(serverURL, tokens,
		client.WithTimeout(a.Config.API.Timeout),
		client.WithRedirectDelay(a.Config.API.RedirectDelay),
	)
	return nil
}

// Wire builds the session, client and guard around an existing token store
func (a *App) Wire(serverURL string, tokens auth.TokenStore, opts ...client.Option) {
	if a.Err == nil {
		a.Err = os.Stderr
	}

	a.ServerURL = serverURL
	a.Tokens = tokens
	a.Session = session.NewStore(tokens)
	a.navigator = &terminalNavigator{out: a.Err}

	base := []client.Option{
		client.WithSession(a.Session),
		client.WithNavigator(a.navigator),
		client.WithLogger(a.Logger),
		// The process exits right after the command, so there is no page to
		// keep the notice on.
		client.WithScheduler(func(_ time.Duration, f func()) { f() }),
	}
	a.API = client.New(serverURL, tokens, append(base, opts...)...)
	a.Guard = router.NewGuard(router.NewTable(router.DefaultRoutes()), a.Session, a.API, a.Logger)
}

// resolveServerURL picks the backend from labres.json when one is present,
// falling back to LABRES_API_URL
func resolveServerURL(cfg *config.Config, serverAlias string, logger zerolog.Logger) (string, error) {
	projectConfig, err := cliconfig.LoadFromCurrentDir()
	if err != nil {
		if serverAlias != "" {
			return "", fmt.Errorf("failed to load config: %w\nRun 'labres init' to create a configuration file", err)
		}
		return cliconfig.NormalizeServerURL(cfg.API.URL)
	}

	if len(projectConfig.Servers) == 0 && serverAlias == "" {
		return cliconfig.NormalizeServerURL(cfg.API.URL)
	}

	server, err := serverselect.ResolveServer(projectConfig, serverAlias, logger)
	if err != nil {
		return "", err
	}

	if server.URL == "" {
		return "", fmt.Errorf("server URL is empty. Please edit %s and add a valid URL", cliconfig.ConfigFileName)
	}
	return cliconfig.NormalizeServerURL(server.URL)
}

// Admit runs the navigation guard for path and turns a redirect into an error
// the user can act on
func (a *App) Admit(ctx context.Context, path string) error {
	if a.navigator != nil {
		a.navigator.route = path
	}
	d, err := a.Guard.Navigate(ctx, path)
	if err != nil {
		return err
	}
	if d.Allowed() {
		return nil
	}

	switch d.Reason {
	case router.ReasonAdminRequired:
		// The guard checks the role first; without a session the real
		// problem is the missing login
		if !a.Session.IsAuthenticated() {
			return ErrLoginRequired
		}
		return ErrAdminRequired
	case router.ReasonSessionInvalid:
		return ErrSessionInvalid
	case router.ReasonAlreadyAuthenticated:
		return ErrAlreadyAuthenticated
	default:
		return ErrLoginRequired
	}
}

// AdmitCommand admits cmd against the route in its annotation, if any
func (a *App) AdmitCommand(cmd *cobra.Command, args []string) error {
	route, ok := cmd.Annotations[AnnotationRoute]
	if !ok {
		return nil
	}
	if len(args) > 0 {
		route = strings.Replace(route, ":id", args[0], 1)
	}
	return a.Admit(cmd.Context(), route)
}

// terminalNavigator shows the expired-session notice on stderr. The CLI has no
// login view to switch to, so the redirect becomes a hint, unless the command
// being admitted is login itself.
type terminalNavigator struct {
	out   io.Writer
	route string
}

func (n *terminalNavigator) Notify(message string) {
	fmt.Fprintf(n.out, "⚠ %s\n", message)
}

func (n *terminalNavigator) Redirect(path string) {
	if path == router.LoginPath && n.route != router.LoginPath {
		fmt.Fprintln(n.out, "Run 'labres login' to sign in.")
	}
}

func routeAnnotation(path string) map[string]string {
	return map[string]string{AnnotationRoute: path}
}

func offlineAnnotation() map[string]string {
	return map[string]string{AnnotationOffline: "true"}
}
