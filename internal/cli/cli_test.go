package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/unidlewatch/internal/config"
	"github.com/thruflo/unidlewatch/internal/console"
	"github.com/thruflo/unidlewatch/internal/demo"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/server"
	"github.com/thruflo/unidlewatch/internal/testutil"
)

// startServer serves script behind a test HTTP server.
func startServer(t *testing.T, cfg config.ServerConfig, script *demo.Script) *httptest.Server {
	t.Helper()

	cfg.RateLimit = config.RateLimitConfig{PerSecond: 1000, Burst: 1000}
	srv := server.New(cfg, server.WithUnidler(script), server.WithLogger(logging.Discard()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		require.NoError(t, srv.Stop())
		ts.Close()
	})
	return ts
}

func testWatchConfig() config.WatchConfig {
	return config.WatchConfig{
		RedirectDelay:     10 * time.Millisecond,
		ReconnectInterval: 10 * time.Millisecond,
	}
}

func TestWatch_Success(t *testing.T) {
	ts := startServer(t, config.DefaultConfig().Server, &demo.Script{
		Steps:          []demo.Step{{Message: "Pending"}, {Message: "Restoring app"}},
		OutcomeMessage: "Ready",
	})

	ctx, cancel := testutil.StreamContext(t)
	defer cancel()

	var out bytes.Buffer
	var opened []string
	err := watch(ctx, watchOptions{
		PageURL: ts.URL + "/?host=app.example.com",
		Delay:   10 * time.Millisecond,
		Watch:   testWatchConfig(),
		Open: func(url string) error {
			opened = append(opened, url)
			return nil
		},
		Out:    &out,
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Ready")
	assert.Contains(t, out.String(), "Redirecting to https://app.example.com/")
	assert.Equal(t, []string{"https://app.example.com/"}, opened)
}

func TestWatch_RedirectHostOverrides(t *testing.T) {
	cfg := config.DefaultConfig().Server
	cfg.RedirectHost = "baked.example.com"
	ts := startServer(t, cfg, &demo.Script{})

	ctx, cancel := testutil.StreamContext(t)
	defer cancel()

	var out bytes.Buffer
	err := watch(ctx, watchOptions{
		PageURL: ts.URL + "/?host=app.example.com",
		Delay:   time.Millisecond,
		Watch:   testWatchConfig(),
		Out:     &out,
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "https://baked.example.com/")

	out.Reset()
	err = watch(ctx, watchOptions{
		PageURL:      ts.URL + "/?host=app.example.com",
		RedirectHost: "flag.example.com",
		Delay:        time.Millisecond,
		Watch:        testWatchConfig(),
		Out:          &out,
		Logger:       logging.Discard(),
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "https://flag.example.com/")
}

func TestWatch_Failure(t *testing.T) {
	ts := startServer(t, config.DefaultConfig().Server, &demo.Script{
		Steps:          []demo.Step{{Message: "Pending"}},
		Fail:           true,
		OutcomeMessage: "deployment never became ready",
	})

	ctx, cancel := testutil.StreamContext(t)
	defer cancel()

	var out, bell bytes.Buffer
	err := watch(ctx, watchOptions{
		PageURL:  ts.URL + "/?host=app.example.com",
		Watch:    testWatchConfig(),
		Notifier: console.NewNotifier(&bell, false),
		Out:      &out,
		Logger:   logging.Discard(),
	})
	require.ErrorIs(t, err, ErrUnidleFailed)
	assert.Equal(t, console.Bell, bell.String())
	assert.Contains(t, err.Error(), "deployment never became ready")
	assert.NotContains(t, out.String(), "Redirecting")
}

func TestWatch_InvalidPageURL(t *testing.T) {
	for _, pageURL := range []string{"ftp://example.com/", "://nope", "example.com"} {
		err := watch(context.Background(), watchOptions{PageURL: pageURL, Logger: logging.Discard()})
		assert.Error(t, err, pageURL)
	}
}

func TestWatch_PageError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := testutil.StreamContext(t)
	defer cancel()

	err := watch(ctx, watchOptions{PageURL: ts.URL + "/", Watch: testWatchConfig(), Out: &bytes.Buffer{}, Logger: logging.Discard()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestLoadPage_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		query string
		want  string
	}{
		{name: "baked host", body: `<body data-redirect-host="app.example.com">`, want: "app.example.com"},
		{name: "escaped baked host", body: `<body data-redirect-host="a&amp;b.example.com">`, want: "a&b.example.com"},
		{name: "host parameter", body: `<body>`, query: "?host=param.example.com", want: "param.example.com"},
		{name: "page host", body: `<body data-redirect-host="">`, want: "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			page, err := http.NewRequest(http.MethodGet, ts.URL+"/"+tt.query, nil)
			require.NoError(t, err)

			host, err := loadPage(context.Background(), ts.Client(), page.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, host)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "unidlewatch version "+Version+"\n", out.String())
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		logLevel, logFormat = "warn", string(logging.FormatText)
		require.NoError(t, configureLogging(nil, nil))
	})

	logLevel, logFormat = "debug", "JSON"
	assert.NoError(t, configureLogging(nil, nil))

	logLevel, logFormat = "loud", "text"
	assert.Error(t, configureLogging(nil, nil))

	logLevel, logFormat = "info", "xml"
	assert.EqualError(t, configureLogging(nil, nil), `unknown log format: "xml"`)
}
