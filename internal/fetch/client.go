package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/modelware/sysql/internal/model"
)

// Credentials carries HTTP basic auth for servers requiring it.
type Credentials struct {
	Username string
	Password string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://host:9000". A trailing
	// slash is tolerated and stripped.
	BaseURL string

	// Credentials enables basic auth when non-nil.
	Credentials *Credentials

	// InsecureSkipVerify disables certificate verification. The
	// connection is NOT trustworthy with this set; it exists for lab
	// servers with self-signed certificates.
	InsecureSkipVerify bool

	// RequestTimeout bounds each individual request. The overall
	// operation deadline comes from the caller's context.
	RequestTimeout time.Duration

	// PageSize, when positive, is requested from the server per page.
	PageSize int

	Retry RetryPolicy
}

// Client talks to one modeling API server.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	creds    *Credentials
	pageSize int
	retry    RetryPolicy
}

// NewClient validates the options and builds a client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", opts.BaseURL)
	}
	if opts.Credentials != nil && opts.Credentials.Username == "" {
		return nil, fmt.Errorf("basic auth requires a username")
	}

	timeout := opts.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retry := opts.Retry
	if retry.InitBackoff == 0 {
		retry = DefaultRetryPolicy
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL:  base,
		http:     &http.Client{Transport: transport, Timeout: timeout},
		creds:    opts.Credentials,
		pageSize: opts.PageSize,
		retry:    retry,
	}, nil
}

// absoluteURL joins a path below the API root.
func (c *Client) absoluteURL(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return &u
}

// FetchElements retrieves the complete element collection for one
// commit, following rel="next" continuation links until exhaustion.
// The result preserves page order; its size equals the sum of all
// pages' record counts.
func (c *Client) FetchElements(ctx context.Context, projectID, commitID string) ([]model.Element, error) {
	first := c.absoluteURL(fmt.Sprintf("projects/%s/commits/%s/elements",
		url.PathEscape(projectID), url.PathEscape(commitID)))
	if c.pageSize > 0 {
		q := first.Query()
		q.Set("page[size]", strconv.Itoa(c.pageSize))
		first.RawQuery = q.Encode()
	}

	var elements []model.Element
	next := first
	for next != nil {
		page, nextURL, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		elements = append(elements, page...)
		next = nextURL
	}
	return elements, nil
}

// fetchPage retrieves and decodes one page, returning its records and
// the continuation URL, nil when this was the last page.
func (c *Client) fetchPage(ctx context.Context, u *url.URL) ([]model.Element, *url.URL, error) {
	resp, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var page []model.Element
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, nil, &Error{Kind: ErrMalformedPagination, URL: u.String(),
			Err: fmt.Errorf("decoding page body: %w", err)}
	}

	next, err := nextLink(resp, u)
	if err != nil {
		return nil, nil, err
	}
	return page, next, nil
}

// getJSON performs one retried GET and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, u *url.URL, v any) error {
	resp, err := c.getWithRetry(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u, err)
	}
	return nil
}

// getWithRetry issues a GET, retrying transient failures up to the
// policy bound. Non-transient failures (4xx, TLS, timeout) propagate
// unretried, because retrying a malformed protocol interaction cannot
// succeed. On success the caller owns the response body.
func (c *Client) getWithRetry(ctx context.Context, u *url.URL) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.retry.wait(ctx, attempt); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				return nil, &Error{Kind: ErrTimeout, URL: u.String(), Err: err}
			}
		}

		resp, err := c.get(ctx, u)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				return nil, err
			case isTimeout(err):
				return nil, &Error{Kind: ErrTimeout, URL: u.String(), Err: err}
			case isTLSFailure(err):
				return nil, &Error{Kind: ErrTLS, URL: u.String(), Err: err}
			default:
				lastErr = err
				continue
			}
		}

		switch {
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			resp.Body.Close()
			return nil, &Error{Kind: ErrHTTPStatus, URL: u.String(), Status: resp.StatusCode}
		default:
			return resp, nil
		}
	}

	return nil, &Error{Kind: ErrTransientExhausted, URL: u.String(), Err: lastErr}
}

// get issues a single GET attempt with auth applied.
func (c *Client) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
	return c.http.Do(req)
}

// isTimeout reports whether the error is a deadline expiry, either from
// the caller's context or the per-request timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isTLSFailure reports whether the error stems from certificate
// verification.
func isTLSFailure(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}
