package http

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sujalbistaa/quillpost/internal/auth"
	"github.com/sujalbistaa/quillpost/internal/db"
	"github.com/sujalbistaa/quillpost/internal/events"
	"github.com/sujalbistaa/quillpost/internal/store"
)

type eventLog struct {
	mu  sync.Mutex
	got []events.Event
}

func (l *eventLog) Publish(_ context.Context, ev events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, ev)
	return nil
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.got {
		out = append(out, ev.Type)
	}
	return out
}

type testApp struct {
	t      *testing.T
	srv    *httptest.Server
	db     *gorm.DB
	store  *store.Store
	hub    *events.Hub
	events *eventLog
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithOptions(t, Options{CORSOrigin: "*", RateLimitRPS: 1000, RateLimitBurst: 1000})
}

func newTestAppWithOptions(t *testing.T, opts Options) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.CSRFKey == nil {
		opts.CSRFKey = bytes.Repeat([]byte("k"), 32)
	}

	gdb, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	content := store.New(gdb)
	sessions := scs.New()
	hub := events.NewHub()
	go hub.Run(ctx)
	log := &eventLog{}

	env := &Env{
		Store:    content,
		Sessions: sessions,
		Auth:     auth.NewManager(sessions, content),
		Hasher:   auth.Hasher{Iterations: 1000, SaltLength: 8},
		Events:   events.Multi{hub, log},
		Hub:      hub,
	}
	handler, err := SetupRoutes(ctx, gin.New(), env, opts)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testApp{t: t, srv: srv, db: gdb, store: content, hub: hub, events: log}
}

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]*)">`)

// client is one browser: its own cookie jar, user agent and the last
// csrf token a page handed it.
type client struct {
	t      *testing.T
	base   string
	hc     *http.Client
	agent  string
	token  string
	header http.Header
}

func (a *testApp) newClient() *client {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &client{
		t:    a.t,
		base: a.srv.URL,
		hc: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		agent:  "quillpost-test",
		header: http.Header{},
	}
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (c *client) do(method, path string, form url.Values) response {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", c.agent)
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.hc.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if m := csrfMeta.FindSubmatch(b); m != nil && len(m[1]) > 0 {
		c.token = html.UnescapeString(string(m[1]))
	}
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(b),
	}
}

func (c *client) get(path string) response { return c.do(http.MethodGet, path, nil) }

// post submits form the way a page on the site would, csrf token included.
func (c *client) post(path string, form url.Values) response {
	c.t.Helper()
	if c.token == "" {
		c.get("/about")
		require.NotEmpty(c.t, c.token)
	}
	withToken := url.Values{csrfFieldName: {c.token}}
	for k, v := range form {
		withToken[k] = v
	}
	return c.do(http.MethodPost, path, withToken)
}

func (c *client) register(email, password, name string) response {
	return c.post("/register", url.Values{"email": {email}, "password": {password}, "name": {name}})
}

func (c *client) login(email, password string) response {
	return c.post("/login", url.Values{"email": {email}, "password": {password}})
}

func postValues(title string) url.Values {
	return url.Values{"title": {title}, "subtitle": {"s"}, "body": {"b"}, "img_url": {"u"}}
}
