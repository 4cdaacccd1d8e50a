// Package fetch provides the HTTP client contract spec.md §6 describes and
// the streamed Downloader/Verifier built on top of it (spec.md §4.6). The
// client itself is grounded on cmd/distri/install.go's package-level
// httpClient and repoReader, including its errNotFound shape.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// UserAgent identifies this updater to whatever serves its index and
// catalogs, per spec.md §6's "must present a User-Agent identifying the
// updater and its version".
const UserAgent = "tupdate/1.0"

// ErrNotFound is returned for a 404 response, grounded on
// cmd/distri/install.go's errNotFound.
type ErrNotFound struct {
	URL *url.URL
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s: HTTP status 404", e.URL)
}

// ErrTransport is returned for any other non-200 response.
type ErrTransport struct {
	URL    *url.URL
	Status string
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

// Client is the one long-lived HTTP handle the whole pipeline shares
// (spec.md §5's "HTTP client: one long-lived handle, not shared across
// threads" — tupdate's pipeline is single-threaded outside of the differ,
// which does no networking, so this is safe as an ordinary struct).
type Client struct {
	http *http.Client
}

// NewClient builds a Client tuned the way install.go's httpClient is: a
// bounded idle-connection pool, nothing fancier.
func NewClient() *Client {
	return &Client{http: &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
		},
	}}
}

// Get issues a GET for u. The caller must Close the returned body. A 404
// response is reported as *ErrNotFound; any other non-200 status as
// *ErrTransport.
func (c *Client) Get(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, &ErrNotFound{URL: u}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &ErrTransport{URL: u, Status: resp.Status}
	}
	return resp.Body, nil
}

// GetBytes buffers the whole response body. The index script and catalog
// fetches both need the complete payload before they can do anything with
// it, unlike artifact downloads, which stream.
func (c *Client) GetBytes(ctx context.Context, u *url.URL) ([]byte, error) {
	body, err := c.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}
