// Package transport is the HTTP layer used to talk to the portal. It keeps
// a single cookie session, spaces consecutive requests by a cooldown,
// chains Referer headers the way a browser would and retries the
// provider's transient "busy" answers.
//
// A Transport is not safe for concurrent use: pacing and Referer chaining
// depend on strict request ordering. Use one Transport per session.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"fdu/internal/portal/domain"
	"fdu/internal/retry"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultCooldown is the minimum spacing between two requests.
	DefaultCooldown = 1500 * time.Millisecond

	// DefaultMaxAttempts is the total number of tries for a busy answer.
	DefaultMaxAttempts = 3

	// DefaultUserAgent mimics a desktop browser; the portal serves a
	// different page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.1; WOW64; Trident/7.0; rv:11.0) like Gecko"

	// DefaultCapacityPhrase is the 503 reason phrase sent when the portal's
	// backend pool is exhausted.
	DefaultCapacityPhrase = "back-end server is at capacity"

	defaultTimeout        = 30 * time.Second
	defaultAcceptLanguage = "en-US,en;q=0.5"
)

var errBusy = errors.New("portal busy")

// Doer executes a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a fully read portal response.
type Response struct {
	StatusCode int
	Status     string
	URL        string
	Header     http.Header
	Body       []byte
}

// Text returns the decoded body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport paces, decorates and retries requests to the portal.
type Transport struct {
	doer           Doer
	clock          Clock
	cooldown       time.Duration
	maxAttempts    int
	userAgent      string
	capacityPhrase string
	log            *logrus.Entry

	lastRequest time.Time
	previousURL string
}

// Option configures a Transport.
type Option func(*Transport)

// WithDoer replaces the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(t *Transport) { t.doer = d }
}

// WithClock replaces the clock used for pacing.
func WithClock(c Clock) Option {
	return func(t *Transport) { t.clock = c }
}

// WithCooldown sets the minimum spacing between requests.
func WithCooldown(d time.Duration) Option {
	return func(t *Transport) { t.cooldown = d }
}

// WithMaxAttempts sets the total attempt budget for busy answers.
func WithMaxAttempts(n int) Option {
	return func(t *Transport) { t.maxAttempts = n }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		if ua != "" {
			t.userAgent = ua
		}
	}
}

// WithCapacityPhrase overrides the 503 reason phrase that triggers a retry.
func WithCapacityPhrase(phrase string) Option {
	return func(t *Transport) { t.capacityPhrase = strings.ToLower(phrase) }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// New returns a Transport with its own cookie jar unless a Doer is supplied.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		clock:          realClock{},
		cooldown:       DefaultCooldown,
		maxAttempts:    DefaultMaxAttempts,
		userAgent:      DefaultUserAgent,
		capacityPhrase: DefaultCapacityPhrase,
		log:            logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.doer == nil {
		client, err := NewSessionClient()
		if err != nil {
			return nil, err
		}
		t.doer = client
	}
	return t, nil
}

// NewSessionClient returns an *http.Client with a cookie jar, suitable for
// holding one authenticated portal session.
func NewSessionClient() (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: defaultTimeout}, nil
}

// Cooldown returns the configured request spacing.
func (t *Transport) Cooldown() time.Duration {
	return t.cooldown
}

// Do sends a request and returns the fully read response. For GET requests
// form is merged into the query string; otherwise it is sent as an
// urlencoded body. Busy answers (504, or 503 carrying the capacity phrase)
// are retried for every method. Network errors such as timeouts are retried
// only for GET and HEAD: a POST may have reached the portal before the
// connection dropped. When the busy budget runs out the last response is
// returned without error so the caller can inspect it.
func (t *Transport) Do(ctx context.Context, method, rawURL string, header http.Header, form Form) (*Response, error) {
	var last *Response
	cfg := retry.Config{
		MaxAttempts: t.maxAttempts,
		OnRetry: func(attempt int, err error) {
			t.log.WithFields(logrus.Fields{
				"method":  method,
				"url":     rawURL,
				"attempt": attempt,
			}).Warnf("retrying portal request: %v", err)
		},
	}

	idempotent := method == http.MethodGet || method == http.MethodHead
	shouldRetry := func(err error) bool {
		if errors.Is(err, errBusy) {
			return true
		}
		return idempotent && retry.IsRetryable(err)
	}
	err := retry.Do(ctx, cfg, shouldRetry, func() error {
		resp, err := t.once(ctx, method, rawURL, header, form)
		if err != nil {
			return err
		}
		last = resp
		if t.busy(resp) {
			return fmt.Errorf("%w: %s", errBusy, resp.Status)
		}
		return nil
	})

	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errBusy) && last != nil:
		return last, nil
	default:
		return nil, &domain.TransportError{Method: method, URL: rawURL, Err: err}
	}
}

// Get is shorthand for Do with GET.
func (t *Transport) Get(ctx context.Context, rawURL string, header http.Header, query Form) (*Response, error) {
	return t.Do(ctx, http.MethodGet, rawURL, header, query)
}

// PostForm is shorthand for Do with POST.
func (t *Transport) PostForm(ctx context.Context, rawURL string, header http.Header, form Form) (*Response, error) {
	return t.Do(ctx, http.MethodPost, rawURL, header, form)
}

func (t *Transport) busy(resp *Response) bool {
	switch resp.StatusCode {
	case http.StatusGatewayTimeout:
		return true
	case http.StatusServiceUnavailable:
		return t.capacityPhrase != "" && strings.Contains(strings.ToLower(resp.Status), t.capacityPhrase)
	}
	return false
}

func (t *Transport) pace(ctx context.Context) error {
	if t.lastRequest.IsZero() || t.cooldown <= 0 {
		return nil
	}
	if t.clock.Now().Sub(t.lastRequest) < t.cooldown {
		return t.clock.Sleep(ctx, t.cooldown)
	}
	return nil
}

func (t *Transport) once(ctx context.Context, method, rawURL string, header http.Header, form Form) (*Response, error) {
	if err := t.pace(ctx); err != nil {
		return nil, err
	}

	req, err := t.newRequest(ctx, method, rawURL, header, form)
	if err != nil {
		return nil, err
	}

	resp, err := t.doer.Do(req)
	t.lastRequest = t.clock.Now()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	t.previousURL = rawURL

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	t.log.WithFields(logrus.Fields{
		"method": method,
		"url":    rawURL,
		"status": resp.StatusCode,
	}).Debug("portal request")

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        finalURL,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (t *Transport) newRequest(ctx context.Context, method, rawURL string, header http.Header, form Form) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	var body io.Reader
	if method == http.MethodGet || method == http.MethodHead || method == http.MethodDelete {
		if form != nil {
			if enc := form.Encode(); enc != "" {
				if u.RawQuery != "" {
					u.RawQuery += "&"
				}
				u.RawQuery += enc
			}
		}
	} else if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", defaultAcceptLanguage)
	}

	// net/http sends req.Host, not a Host entry in the header map.
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
		req.Header.Del("Host")
	} else {
		req.Host = u.Hostname()
	}

	if req.Header.Get("Referer") == "" {
		if t.previousURL != "" {
			req.Header.Set("Referer", t.previousURL)
		} else {
			req.Header.Set("Referer", rawURL)
		}
	}

	return req, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return raw, nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}
