package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/core/telegram/netutil"
)

// HTTPClientOptions tunes the client used for Bot API calls. Zero values use
// the defaults below.
type HTTPClientOptions struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    netutil.Backoff
	// Base is the underlying transport; nil builds a pooled one.
	Base http.RoundTripper
}

const (
	defaultClientTimeout = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = 500 * time.Millisecond
	defaultRetryMax      = 4 * time.Second
)

// BuildHTTPClient returns an HTTP client that retries transient transport
// failures of idempotent or replayable requests.
func BuildHTTPClient() *http.Client {
	return NewHTTPClient(HTTPClientOptions{})
}

// NewHTTPClient builds a retrying client from opts.
func NewHTTPClient(opts HTTPClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultClientTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultRetryAttempts
	}
	if opts.Backoff.Base <= 0 {
		opts.Backoff = netutil.Backoff{Base: defaultRetryBase, Max: defaultRetryMax}
	}
	if opts.Base == nil {
		opts.Base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &retryTransport{base: opts.Base, retries: opts.MaxRetries, backoff: opts.Backoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff netutil.Backoff
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries; attempt++ {
		if !netutil.ShouldRetry(err) {
			return nil, err
		}
		// Without GetBody a consumed body cannot be replayed.
		if req.Body != nil && req.GetBody == nil {
			return nil, err
		}
		logger.Debug(ctx, "tg", "http.retry",
			slog.Int("attempts", attempt),
			slog.String("err_code", "transport"),
		)
		if serr := netutil.Sleep(ctx, t.backoff.Delay(attempt)); serr != nil {
			return nil, serr
		}
		next := req.Clone(ctx)
		if req.GetBody != nil {
			if next.Body, err = req.GetBody(); err != nil {
				return nil, err
			}
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
