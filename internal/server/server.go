package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/thruflo/unidlewatch/internal/config"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/stream"
	"github.com/thruflo/unidlewatch/internal/watcher"
	"github.com/thruflo/unidlewatch/web"
)

// DefaultReadyMessage is published when an Unidler returns without
// reporting an outcome.
const DefaultReadyMessage = "Ready"

// HealthMessage is the body of /healthz.
const HealthMessage = "Still OK"

const (
	readTimeout     = 5 * time.Second
	idleTimeout     = 2 * time.Minute
	writeTimeout    = 2 * time.Minute
	shutdownTimeout = 5 * time.Second
	cleanupInterval = time.Minute
	// outcomeTTL is how long a host's last frame is kept for late pages
	// once nobody is watching it.
	outcomeTTL = 10 * time.Minute
)

// Server serves the waiting page and the per-host event streams.
type Server struct {
	cfg     config.ServerConfig
	unidler Unidler
	broker  *Broker
	limiter *rateLimiter
	static  fs.FS
	logger  *logging.Logger
	handler http.Handler

	// Unidles run under runCtx until Stop cancels it.
	runCtx    context.Context
	runCancel context.CancelFunc
	runs      sync.WaitGroup

	mu       sync.RWMutex
	running  map[string]bool
	server   *http.Server
	listener net.Listener
	started  bool
}

// Option configures a Server.
type Option func(*Server)

// WithUnidler sets the backend started when a page is rendered. Without
// one the page is served but nothing is ever published.
func WithUnidler(u Unidler) Option {
	return func(s *Server) {
		s.unidler = u
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server from cfg.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = config.DefaultKeepalive
	}

	s := &Server{
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimit),
		static:  web.Static(cfg.StaticDir),
		running: make(map[string]bool),
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.broker = NewBroker(s.logger)
	s.broker.Busy = s.Running
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	s.handler = mux

	return s
}

// Handler returns the server's routes, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Broker returns the broker the server publishes to.
func (s *Server) Broker() *Broker {
	return s.broker
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.cfg.Port
}

// Start starts the HTTP server.
// The server runs until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("listening", "addr", listener.Addr().String())

	go s.cleanup(ctx)
	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Error("shutdown failed", "error", err)
		}
	}()

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop cancels running unidles, disconnects every event stream and
// gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.runCancel()
	s.mu.Unlock()
	// Streams only end when their subscription closes, so close them
	// before waiting on Shutdown.
	s.broker.Close()
	s.runs.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on.
// Useful when port 0 is used to get an available port.
// Returns empty string if not started.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.limiter.cleanup(now)
			if n := s.expireHosts(now); n > 0 {
				s.logger.Debug("expired hosts", "count", n)
			}
		}
	}
}

// expireHosts forgets the hosts that finished unidling more than
// outcomeTTL ago and have no page watching them.
func (s *Server) expireHosts(now time.Time) int {
	return s.broker.Expire(now.Add(-outcomeTTL))
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc(watcher.EventsBasePath, s.withRateLimit(s.handleEvents))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.static))))
	mux.HandleFunc("/", s.handlePage)
}

// withRateLimit rejects clients opening event streams too quickly.
func (s *Server) withRateLimit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		result := s.limiter.check(ip, time.Now())
		if !result.Allowed {
			s.logger.Warn("rate limited", "ip", ip, "retry_after", result.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		handler(w, r)
	}
}

// targetHost is the host being unidled: the host query parameter when
// present, else the request's Host without its port.
func targetHost(r *http.Request) string {
	if host := watcher.HostParam(r.URL); host != "" {
		return host
	}
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		return r.Host
	}
	return host
}

// redirectHost is the host baked into the page.
func (s *Server) redirectHost(r *http.Request) string {
	if s.cfg.RedirectHost != "" {
		return s.cfg.RedirectHost
	}
	return targetHost(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, HealthMessage)
}

// handlePage renders the waiting page and starts unidling its host.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := web.RenderPage(w, web.Page{RedirectHost: s.redirectHost(r)}); err != nil {
		s.logger.Error("failed to render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodGet {
		s.StartUnidle(targetHost(r))
	}
}

// StartUnidle starts unidling host unless an unidle for it is already
// running. It reports whether a new unidle was started.
func (s *Server) StartUnidle(host string) bool {
	if s.unidler == nil {
		return false
	}

	s.mu.Lock()
	if s.runCtx.Err() != nil || s.running[host] {
		s.mu.Unlock()
		return false
	}
	s.running[host] = true
	s.runs.Add(1)
	s.mu.Unlock()

	s.broker.Reset(host)
	go s.unidle(host)
	return true
}

// Running reports whether an unidle for host is in progress.
func (s *Server) Running(host string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[host]
}

func (s *Server) unidle(host string) {
	defer s.runs.Done()
	defer func() {
		s.mu.Lock()
		delete(s.running, host)
		s.mu.Unlock()
	}()

	logger := s.logger.With("host", host)
	logger.Info("unidling")

	rep := &hostReporter{broker: s.broker, host: host}
	err := s.unidler.Unidle(s.runCtx, host, rep)
	switch {
	case err != nil:
		logger.Error("unidle failed", "error", err)
		rep.Fail(err)
	case !rep.finished():
		rep.Succeed(DefaultReadyMessage)
	}
	logger.Info("unidle finished", "ok", err == nil)
}

// handleEvents streams the host's frames as Server-Sent Events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("failed to clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	host := targetHost(r)
	sub := s.broker.Subscribe(host, r.Header.Get("Last-Event-ID"))
	defer s.broker.Unsubscribe(host, sub.ID)

	logger := s.logger.WithFields(map[string]interface{}{"host": host, "subscriber": sub.ID})
	logger.Debug("subscriber connected")
	defer logger.Debug("subscriber disconnected")

	w.WriteHeader(http.StatusOK)
	if sub.Replay != nil {
		io.WriteString(w, sub.Replay.String())
	}
	flusher.Flush()

	keepalive := time.NewTicker(s.cfg.Keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-sub.Frames:
			if !ok {
				return
			}
			if _, err := io.WriteString(w, f.String()); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
