package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/client"
	"github.com/labres-dev/labres/internal/config"
)

const (
	adminJSON   = `{"id":1,"email":"admin@lab.org","full_name":"Ada Admin","role":"admin","is_active":true}`
	studentJSON = `{"id":2,"email":"stu@lab.org","role":"student","is_active":true}`

	instrumentsJSON = `[
		{"id":3,"name":"Confocal microscope","location":"Room 101","is_active":true,"status":"available"},
		{"id":4,"name":"Mass spectrometer","location":"Room 204","is_active":true,"status":"maintenance"}
	]`
	reservationJSON = `{"id":9,"start_time":"2026-11-02T09:00:00Z","end_time":"2026-11-02T11:00:00Z","instrument_id":3,"status":"pending","user_id":2}`
)

type reply struct {
	status int
	body   string
}

type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// fakeBackend serves canned replies keyed by "METHOD /path" (without the API prefix)
type fakeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	replies  map[string]reply
	queued   map[string][]reply
	requests []recorded
}

func newFakeBackend(t *testing.T, replies map[string]reply) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{replies: replies}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		path := strings.TrimPrefix(r.URL.Path, client.APIPrefix)

		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{Method: r.Method, Path: path, Query: r.URL.Query(), Body: string(body)})
		key := r.Method + " " + path
		rep, ok := fb.replies[key]
		if q := fb.queued[key]; len(q) > 0 {
			rep, ok = q[0], true
			fb.queued[key] = q[1:]
		}
		fb.mu.Unlock()

		if !ok {
			rep = reply{status: http.StatusNotFound, body: `{"detail":"Not Found"}`}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	}))
	t.Cleanup(fb.Close)
	return fb
}

// sequence queues replies for key, served in order before falling back to
// the fixed reply map
func (fb *fakeBackend) sequence(key string, replies ...reply) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.queued == nil {
		fb.queued = map[string][]reply{}
	}
	fb.queued[key] = append(fb.queued[key], replies...)
}

func (fb *fakeBackend) calls() []recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recorded(nil), fb.requests...)
}

func (fb *fakeBackend) paths() []string {
	var out []string
	for _, r := range fb.calls() {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func (fb *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	calls := fb.calls()
	require.NotEmpty(t, calls)
	return calls[len(calls)-1]
}

func ok(body string) reply {
	return reply{status: http.StatusOK, body: body}
}

// newTestApp wires an App against the fake backend, optionally with a stored token
func newTestApp(t *testing.T, fb *fakeBackend, token string) (*App, *bytes.Buffer) {
	t.Helper()

	tokens := auth.NewMemoryStore()
	if token != "" {
		require.NoError(t, tokens.SaveToken(token))
	}

	errOut := &bytes.Buffer{}
	app := &App{
		Config: &config.Config{Web: config.WebConfig{Addr: "127.0.0.1:8080"}},
		Logger: zerolog.Nop(),
		Err:    errOut,
	}
	app.Wire(fb.URL, tokens)
	return app, errOut
}

// execute runs args through a root command that admits routed commands the
// same way the real root does
func execute(app *App, args ...string) (string, error) {
	root := &cobra.Command{
		Use:           "labres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.AdmitCommand(cmd, args)
		},
	}
	root.AddCommand(
		NewLoginCmd(app),
		NewLogoutCmd(app),
		NewStatusCmd(app),
		NewInstrumentsCmd(app),
		NewReservationsCmd(app),
		NewUsersCmd(app),
		NewPermissionsCmd(app),
		NewOpenCmd(app),
	)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}
