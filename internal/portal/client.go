// Package portal drives the provider's web control panel: it logs in,
// lists domains and DNS records, and submits the same forms a browser
// would. Every mutating call fetches a fresh anti-forgery token from the
// page that hosts the form.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fdu/internal/portal/domain"
	"fdu/internal/portal/htmlparse"
	"fdu/internal/portal/transport"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the portal root.
const DefaultBaseURL = "https://my.freenom.com"

// Session executes paced requests within one authenticated portal session.
// *transport.Transport satisfies it.
type Session interface {
	Do(ctx context.Context, method, rawURL string, header http.Header, form transport.Form) (*transport.Response, error)
}

// Client implements the portal operations on top of a Session. Like the
// Session it wraps, a Client must not be used concurrently.
type Client struct {
	session Session
	base    *url.URL
	log     *logrus.Entry
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another portal root. Invalid URLs are
// ignored.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		u, err := url.Parse(strings.TrimRight(raw, "/"))
		if err == nil && u.Scheme != "" && u.Host != "" {
			c.base = u
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithNow replaces the clock used for renewal decisions.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Client using the given session.
func New(session Session, opts ...Option) *Client {
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		session: session,
		base:    base,
		log:     logrus.NewEntry(logrus.StandardLogger()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the portal root the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + "/" + path
}

func (c *Client) clientAreaURL() string { return c.endpoint("clientarea.php") }

func (c *Client) loginURL() string { return c.endpoint("dologin.php") }

func (c *Client) domainListURL() string { return c.clientAreaURL() + "?action=domains" }

func (c *Client) domainDetailsURL() string { return c.clientAreaURL() + "?action=domaindetails" }

// ManageDomainURL returns the DNS management page of a domain.
func (c *Client) ManageDomainURL(d domain.Domain) string {
	return fmt.Sprintf("%s?managedns=%s&domainid=%s",
		c.clientAreaURL(), url.QueryEscape(d.Name), url.QueryEscape(d.ID))
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, form transport.Form) (*transport.Response, error) {
	resp, err := c.session.Do(ctx, method, rawURL, header, form)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &domain.StatusError{Method: method, URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, rawURL string, query transport.Form) (*transport.Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, query)
}

func (c *Client) post(ctx context.Context, rawURL string, header http.Header, form transport.Form) (*transport.Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, header, form)
}

// token fetches pageURL and returns its anti-forgery token. Tokens are
// page scoped and never reused.
func (c *Client) token(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.get(ctx, pageURL, nil)
	if err != nil {
		return "", err
	}
	tok, err := htmlparse.Token(resp.Text())
	if err != nil {
		var nte *domain.NoTokenError
		if errors.As(err, &nte) {
			nte.URL = pageURL
		}
		return "", err
	}
	return tok, nil
}

// Login authenticates the session. It reports false when the portal did not
// accept the credentials.
func (c *Client) Login(ctx context.Context, username, password string) (bool, error) {
	tok, err := c.token(ctx, c.clientAreaURL())
	if err != nil {
		return false, fmt.Errorf("login: %w", err)
	}

	form := url.Values{
		"token":      {tok},
		"username":   {username},
		"password":   {password},
		"rememberme": {""},
	}
	header := http.Header{
		"Host":    {c.base.Hostname()},
		"Referer": {fmt.Sprintf("%s://%s/clientarea.php", c.base.Scheme, c.base.Host)},
	}
	resp, err := c.post(ctx, c.loginURL(), header, form)
	if err != nil {
		return false, fmt.Errorf("login: %w", err)
	}

	ok := htmlparse.IsLoggedIn(resp.Text())
	if !ok {
		// Some login flows land on an interstitial; check the client area.
		ok, err = c.IsLoggedIn(ctx)
		if err != nil {
			return false, fmt.Errorf("login: %w", err)
		}
	}
	c.log.WithFields(logrus.Fields{"user": username, "ok": ok}).Info("portal login")
	return ok, nil
}

// IsLoggedIn checks the client area for the authenticated-only greeting.
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, c.clientAreaURL(), nil)
	if err != nil {
		return false, err
	}
	return htmlparse.IsLoggedIn(resp.Text()), nil
}

// ListDomains returns every domain of the account, paging disabled.
func (c *Client) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	tok, err := c.token(ctx, c.domainListURL())
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	form := url.Values{"token": {tok}, "itemlimit": {"all"}}
	resp, err := c.post(ctx, c.domainListURL(), nil, form)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	domains, err := htmlparse.Domains(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

// GetMatchingDomain looks d up by id and name in known, or in a freshly
// fetched list when known is nil. It returns nil when there is no match.
func (c *Client) GetMatchingDomain(ctx context.Context, d domain.Domain, known []domain.Domain) (*domain.Domain, error) {
	if known == nil {
		var err error
		known, err = c.ListDomains(ctx)
		if err != nil {
			return nil, err
		}
	}
	match, ok := domain.FindDomain(known, d.ID, d.Name)
	if !ok {
		return nil, nil
	}
	return match, nil
}

// ContainsDomain reports whether d is owned by the account.
func (c *Client) ContainsDomain(ctx context.Context, d domain.Domain, known []domain.Domain) (bool, error) {
	match, err := c.GetMatchingDomain(ctx, d, known)
	return match != nil, err
}
