package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/imagecatalog/internal/domain/catalog"
)

// maxBodyBytes bounds how much of an error body is kept for reporting.
const maxBodyBytes = 4 << 10

// ErrNoValues is returned when the service has nothing listed for an OS.
var ErrNoValues = errors.New("no values for os")

// HTTPClient wraps http.Client with a timeout and never follows redirects,
// so the probe sees the service's own answer.
type HTTPClient struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPClient creates a client rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: want http(s)://host", baseURL)
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base: base,
	}, nil
}

// Resolve turns a path or a listed relative link into an absolute URL.
func (c *HTTPClient) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	// Listed links are relative to /list.
	return c.base.ResolveReference(&url.URL{Path: "/list"}).ResolveReference(u), nil
}

// Get performs a GET request bound to ctx.
func (c *HTTPClient) Get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// List fetches the catalog for os.
func (c *HTTPClient) List(ctx context.Context, os string) ([]catalog.ListEntry, error) {
	u, err := c.Resolve("/list?os=" + url.QueryEscape(os))
	if err != nil {
		return nil, err
	}
	resp, err := c.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var entries []catalog.ListEntry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decoding list for %s: %w", os, err)
		}
		return entries, nil
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w %s: %s", ErrNoValues, os, readMessage(resp.Body))
	default:
		return nil, fmt.Errorf("list %s: unexpected status %d", os, resp.StatusCode)
	}
}

// Follow requests one listed link and classifies the answer.
func (c *HTTPClient) Follow(ctx context.Context, os, link string) Check {
	check := Check{OS: os, Link: link, Outcome: OutcomeFailed}
	u, err := c.Resolve(link)
	if err != nil {
		check.Message = err.Error()
		return check
	}
	resp, err := c.Get(ctx, u.String())
	if err != nil {
		check.Message = err.Error()
		return check
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		check.Location = resp.Header.Get("Location")
		loc, err := url.Parse(check.Location)
		if err != nil || !loc.IsAbs() {
			check.Message = "redirect without absolute location"
			return check
		}
		check.Outcome = OutcomeRedirect
	case resp.StatusCode == http.StatusBadRequest:
		check.Outcome = OutcomeRejected
		check.Message = readMessage(resp.Body)
	default:
		check.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return check
}

func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	return strings.TrimSpace(string(b))
}
