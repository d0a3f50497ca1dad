// Package apiclient is the outbound JSON client for the TutorHub backend and
// the identity provider. Cross-cutting behavior (bearer tokens, auth failure
// handling, timeouts, rate limiting, metrics) is composed as explicit
// middleware around a Doer.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

const maxErrorBody = 64 << 10

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware decorates a Doer.
type Middleware func(next Doer) Doer

// Chain wraps base with mws; the first middleware is the outermost.
func Chain(base Doer, mws ...Middleware) Doer {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

type Client struct {
	baseURL string
	doer    Doer
}

func New(baseURL string, base Doer, mws ...Middleware) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    Chain(base, mws...),
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends a JSON request and decodes a 2xx body into out when out is non-nil.
// Non-2xx responses become *apperror.AppError values carrying the status and
// the upstream message.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
			return err
		}
		return apperror.New(http.StatusBadGateway, "the TutorHub service is unreachable",
			fmt.Errorf("%w: %s %s: %v", apperror.ErrUnavailable, method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrorFromResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// ErrorFromResponse reads the upstream error message and maps the status to
// an AppError. The body is consumed but not closed.
func ErrorFromResponse(resp *http.Response) *apperror.AppError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return apperror.FromStatus(resp.StatusCode, upstreamMessage(raw))
}

// upstreamMessage understands both {"error": "..."} / {"message": "..."} and
// the {"error": {"message": "..."}} shape used by the identity provider.
func upstreamMessage(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return body.Message
}

// Path joins escaped segments into a request path: Path("tutors", email)
// yields /tutors/<escaped email>.
func Path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
