package cli

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thruflo/unidlewatch/internal/config"
	"github.com/thruflo/unidlewatch/internal/console"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/stream"
	"github.com/thruflo/unidlewatch/internal/watcher"
)

// ErrUnidleFailed is returned by watch when the page reports a failure.
var ErrUnidleFailed = errors.New("unidle failed")

// maxPageSize bounds how much of the page is read looking for the
// redirect host.
const maxPageSize = 1 << 20

var redirectHostAttr = regexp.MustCompile(`data-redirect-host="([^"]*)"`)

var (
	watchConfigPath   string
	watchRedirectHost string
	watchDelay        time.Duration
	watchOpen         bool
	watchNotify       bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <page-url>",
	Short: "Follow a waiting page from the terminal",
	Long: `Loads the waiting page at page-url, which starts the unidle, and follows
its event stream. Progress is printed as it arrives. On success the redirect
URL is printed after the redirect delay, and opened in the browser with
--open. On failure the command exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchConfigPath, "config", "c", "", "path to config file")
	watchCmd.Flags().StringVar(&watchRedirectHost, "redirect-host", "", "host to redirect to (default: read from the page)")
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 0, "delay before redirecting (default from config, 5s)")
	watchCmd.Flags().BoolVar(&watchOpen, "open", false, "open the redirect URL in the browser")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", false, "ring the bell and post a desktop notification when the unidle finishes")
	rootCmd.AddCommand(watchCmd)
}

// watchOptions holds everything a watch needs.
type watchOptions struct {
	PageURL      string
	RedirectHost string
	Delay        time.Duration
	Watch        config.WatchConfig
	Open         func(url string) error
	Notifier     *console.Notifier
	HTTPClient   *http.Client
	Out          io.Writer
	Logger       *logging.Logger
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(watchConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := watchOptions{
		PageURL:      args[0],
		RedirectHost: watchRedirectHost,
		Delay:        cfg.Watch.RedirectDelay,
		Watch:        cfg.Watch,
		Out:          cmd.OutOrStdout(),
		Logger:       logging.Default(),
	}
	if cmd.Flags().Changed("delay") {
		opts.Delay = watchDelay
	}
	if watchOpen {
		opts.Open = console.OpenBrowser
	}
	if watchNotify {
		opts.Notifier = console.NewNotifier(cmd.ErrOrStderr(), true)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, opts)
}

func watch(ctx context.Context, opts watchOptions) error {
	page, err := url.Parse(opts.PageURL)
	if err != nil {
		return fmt.Errorf("invalid page URL: %w", err)
	}
	if page.Scheme != "http" && page.Scheme != "https" {
		return fmt.Errorf("invalid page URL %q: scheme must be http or https", opts.PageURL)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	clientOpts := []stream.ClientOption{
		stream.WithHTTPClient(opts.HTTPClient),
		stream.WithLogger(opts.Logger),
		stream.WithMaxReconnectAttempts(opts.Watch.MaxReconnectAttempts),
	}
	if opts.Watch.ReconnectInterval > 0 {
		clientOpts = append(clientOpts, stream.WithReconnectInterval(opts.Watch.ReconnectInterval))
	}
	base := (&url.URL{Scheme: page.Scheme, Host: page.Host}).String()
	client := stream.NewClient(base, clientOpts...)

	// Loading the page starts the unidle and clears any earlier outcome
	// for the host. Reports published before the subscription opens are
	// covered by the server replaying the latest one.
	redirectHost, err := loadPage(ctx, opts.HTTPClient, page)
	if err != nil {
		return err
	}
	if opts.RedirectHost != "" {
		redirectHost = opts.RedirectHost
	}

	sub := watcher.Subscribe(ctx, client, watcher.HostParam(page))
	defer sub.Close()

	presenter := console.NewPresenter(opts.Out, nil)
	navOpts := []console.NavigatorOption{console.WithNavigatorLogger(opts.Logger)}
	if opts.Open != nil {
		navOpts = append(navOpts, console.WithOpener(opts.Open))
	}
	nav := console.NewNavigator(opts.Out, nil, navOpts...)

	w := watcher.New(sub, presenter,
		watcher.WithNavigator(nav),
		watcher.WithRedirect(redirectHost, opts.Delay),
		watcher.WithLogger(opts.Logger),
	)

	state, err := w.Run(ctx, sub)
	if err != nil {
		return err
	}
	if opts.Notifier != nil && state.Terminal() {
		if err := opts.Notifier.Notify("unidlewatch", presenter.Current()); err != nil {
			opts.Logger.Warn("failed to notify", "error", err)
		}
	}

	switch state {
	case watcher.Success:
		select {
		case <-nav.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case watcher.Failure:
		return fmt.Errorf("%w: %s", ErrUnidleFailed, presenter.Current())
	default:
		return errors.New("event stream ended before the unidle finished")
	}
}

// loadPage fetches the waiting page, as a browser would, and returns the
// redirect host baked into it. Pages without one fall back to the host
// parameter, then the page's own host.
func loadPage(ctx context.Context, client *http.Client, page *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to load page: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	if m := redirectHostAttr.FindSubmatch(body); m != nil && len(m[1]) > 0 {
		return html.UnescapeString(string(m[1])), nil
	}
	if host := watcher.HostParam(page); host != "" {
		return host, nil
	}
	if host, _, err := net.SplitHostPort(page.Host); err == nil {
		return host, nil
	}
	return page.Host, nil
}
