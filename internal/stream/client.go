package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thruflo/unidlewatch/internal/logging"
)

// ContentType is the media type of an SSE response.
const ContentType = "text/event-stream"

var (
	// ErrBadStatus is returned when the server answers with a non-200 status.
	ErrBadStatus = errors.New("stream: unexpected response status")
	// ErrBadContentType is returned when the response is not an event stream.
	ErrBadContentType = errors.New("stream: response is not an event stream")
	// ErrMaxReconnects is returned when reconnection attempts are exhausted.
	ErrMaxReconnects = errors.New("stream: max reconnection attempts exceeded")
)

// Client opens Server-Sent Event subscriptions against a base URL.
// Like a browser EventSource it reconnects after the stream ends or the
// network fails, resuming with Last-Event-ID.
type Client struct {
	// baseURL is the scheme and authority of the server, e.g. "http://localhost:8080"
	baseURL string

	// httpClient is the HTTP client used for requests
	httpClient *http.Client

	// reconnectInterval is the time to wait between reconnection attempts
	// until the server sends a retry field
	reconnectInterval time.Duration

	// maxReconnectAttempts is the maximum number of consecutive failed
	// connection attempts (0 = unlimited)
	maxReconnectAttempts int

	logger *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithReconnectInterval sets the interval between reconnection attempts.
func WithReconnectInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.reconnectInterval = interval
	}
}

// WithMaxReconnectAttempts sets the maximum number of consecutive failed
// attempts. Set to 0 for unlimited attempts.
func WithMaxReconnectAttempts(attempts int) ClientOption {
	return func(c *Client) {
		c.maxReconnectAttempts = attempts
	}
}

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0, // No timeout for streaming connections
		},
		reconnectInterval:    3 * time.Second,
		maxReconnectAttempts: 0,
		logger:               logging.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the base URL of the stream server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Subscribe opens a subscription to path (which may carry a query string)
// and starts delivering frames. The subscription runs until Close is called,
// ctx is canceled, or the connection fails for good.
func (c *Client) Subscribe(ctx context.Context, path string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		client: c,
		url:    c.baseURL + path,
		frames: make(chan *Frame, 16),
		errs:   make(chan error, 4),
		done:   make(chan struct{}),
		cancel: cancel,
		retry:  c.reconnectInterval,
	}
	go s.run(ctx)
	return s
}

// Subscription is a live SSE connection with automatic reconnection.
type Subscription struct {
	client *Client
	url    string

	frames chan *Frame
	errs   chan error
	done   chan struct{}

	cancel    context.CancelFunc
	closeOnce sync.Once
	state     atomic.Uint32

	// mu protects lastID and retry
	mu     sync.Mutex
	lastID string
	retry  time.Duration
}

// Frames returns the channel of received frames. It is closed when the
// subscription ends.
func (s *Subscription) Frames() <-chan *Frame {
	return s.frames
}

// Errors returns the channel of transport errors. Each failed connection
// attempt is reported. It is closed when the subscription ends.
// A stream the server ends cleanly is not an error here: the subscription
// just reconnects, where a browser EventSource would also fire error.
func (s *Subscription) Errors() <-chan error {
	return s.errs
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// State reports the current connection state.
func (s *Subscription) State() ReadyState {
	return ReadyState(s.state.Load())
}

// LastEventID returns the id of the last frame received.
func (s *Subscription) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// Close stops the subscription and waits for its goroutine to exit.
// It is safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

func (s *Subscription) setState(state ReadyState) {
	s.state.Store(uint32(state))
}

// run handles the main subscription loop with reconnection logic.
func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.errs)
	defer close(s.frames)
	defer s.setState(Closed)

	logger := s.client.logger.With("url", s.url)
	attempts := 0

	for {
		s.setState(Connecting)
		opened, err := s.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if opened {
			attempts = 0
		}

		if err != nil {
			if errors.Is(err, ErrBadStatus) || errors.Is(err, ErrBadContentType) {
				// The server refused the stream; reconnecting won't help.
				s.report(ctx, err)
				return
			}

			attempts++
			limit := s.client.maxReconnectAttempts
			if limit > 0 && attempts >= limit {
				s.report(ctx, fmt.Errorf("%w (%d): %v", ErrMaxReconnects, limit, err))
				return
			}
			s.report(ctx, err)
			logger.Debug("connection failed, will reconnect", "error", err, "attempt", attempts)
		} else {
			logger.Debug("stream ended, reconnecting")
		}

		s.mu.Lock()
		wait := s.retry
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// report delivers err to the consumer unless the subscription is closing.
func (s *Subscription) report(ctx context.Context, err error) {
	select {
	case s.errs <- err:
	case <-ctx.Done():
	}
}

// connect performs one connection attempt and streams its frames.
// opened reports whether the server accepted the stream. A nil error means
// the stream ended cleanly or ctx was canceled.
func (s *Subscription) connect(ctx context.Context) (opened bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", ContentType)
	req.Header.Set("Cache-Control", "no-cache")
	if id := s.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("%w %d: %s", ErrBadStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != ContentType {
		return false, fmt.Errorf("%w: %q", ErrBadContentType, resp.Header.Get("Content-Type"))
	}

	s.setState(Open)
	dec := NewDecoder(resp.Body)

	for {
		frame, err := dec.Decode()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("error reading stream: %w", err)
		}

		s.mu.Lock()
		if id := dec.LastID(); id != "" {
			s.lastID = id
		}
		if ms := dec.Retry(); ms > 0 {
			s.retry = time.Duration(ms) * time.Millisecond
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return true, nil
		case s.frames <- frame:
		}
	}
}
