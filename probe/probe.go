// Package probe is the network capability used by governance rules: URL
// reachability and organization-name lookups in the ROR registry.
//
// Only a well-defined negative response maps to a governance error. Any
// other failure, such as a transport error or an unexpected status from the
// registry, is returned as a *niidg.UnexpectedError and aborts validation.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	niidg "github.com/reoring/niidg"
)

// DefaultTimeout bounds a single fetch when NewHTTP is given zero.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response body is retained.
const maxBody = 1 << 20

// RORAPI is the organization endpoint of the ROR registry.
var RORAPI = "https://api.ror.org/organizations/"

// ErrOffline is returned by Offline for every fetch.
var ErrOffline = errors.New("probe: offline")

// Response is the outcome of a completed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// Prober fetches a URL. A non-nil error means no response was obtained.
type Prober interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, url string) (*Response, error)

// Fetch implements Prober.
func (f Func) Fetch(ctx context.Context, url string) (*Response, error) { return f(ctx, url) }

// Offline is a Prober that never touches the network. Checks that depend on
// it are skipped.
type Offline struct{}

// Fetch implements Prober.
func (Offline) Fetch(context.Context, string) (*Response, error) { return nil, ErrOffline }

// HTTP is a Prober backed by net/http.
type HTTP struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures an HTTP prober.
type Option func(*HTTP)

// WithClient replaces the underlying client. The client's own timeout applies.
func WithClient(c *http.Client) Option { return func(h *HTTP) { h.client = c } }

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option { return func(h *HTTP) { h.logger = l } }

// NewHTTP returns a prober whose requests are bounded by timeout.
func NewHTTP(timeout time.Duration, opts ...Option) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	h := &HTTP{
		client: &http.Client{Timeout: timeout},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Fetch issues a GET request and reads up to 1 MiB of the body.
func (h *HTTP) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, */*;q=0.8")
	start := time.Now()
	res, err := h.client.Do(req)
	if err != nil {
		h.logger.DebugContext(ctx, "probe failed", "url", url, "err", err)
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, err
	}
	h.logger.DebugContext(ctx, "probe", "url", url, "status", res.StatusCode, "elapsed", time.Since(start))
	return &Response{StatusCode: res.StatusCode, Body: body}, nil
}

// AccessURL checks that url answers with a non-error status. An error status
// is a governance error on "@id".
func AccessURL(ctx context.Context, p Prober, url string) error {
	res, err := p.Fetch(ctx, url)
	if errors.Is(err, ErrOffline) {
		return nil
	}
	if err != nil {
		return niidg.Unexpected(fmt.Errorf("probe %s: %w", url, err))
	}
	if res.StatusCode >= http.StatusBadRequest {
		return &niidg.GovernanceError{
			Property: "@id",
			Code:     niidg.CodeDependencyUnavailable,
			Message:  fmt.Sprintf("URL is not accessible. %d %s for url: %s", res.StatusCode, http.StatusText(res.StatusCode), url),
		}
	}
	return nil
}

type rorOrganization struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Names   []struct {
		Value string `json:"value"`
	} `json:"names"`
}

// RORNames returns every registered name of a ROR organization: its aliases
// followed by its primary name. A 404 is a governance error on "@id". When p
// is offline the lookup is skipped and both results are nil.
func RORNames(ctx context.Context, p Prober, rorID string) ([]string, error) {
	rorID = strings.TrimPrefix(rorID, "https://ror.org/")
	res, err := p.Fetch(ctx, RORAPI+rorID)
	if errors.Is(err, ErrOffline) {
		return nil, nil
	}
	if err != nil {
		return nil, niidg.Unexpected(fmt.Errorf("ror lookup %s: %w", rorID, err))
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, &niidg.GovernanceError{
			Property: "@id",
			Code:     niidg.CodeDependencyUnavailable,
			Message:  fmt.Sprintf("ROR ID %s does not exist.", rorID),
		}
	case res.StatusCode >= http.StatusBadRequest:
		return nil, niidg.Unexpected(fmt.Errorf("ror lookup %s: status %d", rorID, res.StatusCode))
	}
	var org rorOrganization
	if err := json.Unmarshal(res.Body, &org); err != nil {
		return nil, niidg.Unexpected(fmt.Errorf("ror lookup %s: %w", rorID, err))
	}
	names := append([]string(nil), org.Aliases...)
	for _, n := range org.Names {
		names = append(names, n.Value)
	}
	if org.Name != "" {
		names = append(names, org.Name)
	}
	return names, nil
}
