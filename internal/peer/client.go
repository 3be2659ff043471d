// Package peer holds the HTTP gateways to the customer, debt, credit and
// transaction-ledger services.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when a peer answers 404.
var ErrNotFound = errors.New("peer resource not found")

// Error describes a failed peer call: a transport failure, a timeout or a
// non-2xx status. A 404 is an Error only for peers where it does not name a
// missing resource, such as the ledger.
type Error struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s %s: unexpected status %d", e.Service, e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Service, e.Method, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type client struct {
	service string
	baseURL string
	http    *http.Client
	// notFound makes a 404 answer ErrNotFound instead of an *Error.
	notFound bool
}

func newClient(service, baseURL string, timeout time.Duration) client {
	return client{
		service:  service,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		notFound: true,
	}
}

// do sends body as JSON and decodes a 2xx response into out (when non-nil).
func (c client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", c.service, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Service: c.service, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && c.notFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{Service: c.service, Method: method, Path: path, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Service: c.service, Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
