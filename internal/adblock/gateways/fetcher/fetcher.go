// Package fetcher downloads filter sources over HTTP(S) or from file:// URLs.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
)

var (
	// ErrEmptyBody is returned when a source has no content.
	ErrEmptyBody = errors.New("empty response body")
	// ErrUnexpectedStatus is returned for any HTTP status other than 200.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrTooLarge is returned when a body exceeds the configured maximum.
	ErrTooLarge = errors.New("response body too large")
	// ErrBadScheme is returned for URLs that are neither http(s) nor file.
	ErrBadScheme = errors.New("unsupported url scheme")
)

// DefaultUserAgent is sent with every HTTP request.
const DefaultUserAgent = "adshield/1.0 (+filter-updater)"

// Fetcher is the contract used by the filter manager.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Options configures an HTTP fetcher.
type Options struct {
	Client    *http.Client
	MaxSize   datasize.ByteSize
	UserAgent string
}

// HTTPFetcher fetches sources with net/http. Deadlines come from the
// caller's context.
type HTTPFetcher struct {
	client    *http.Client
	maxSize   datasize.ByteSize
	userAgent string
}

// New returns a fetcher. A nil client uses http.DefaultClient; a zero
// MaxSize disables the size cap.
func New(opts Options) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &HTTPFetcher{client: client, maxSize: opts.MaxSize, userAgent: ua}
}

// Fetch returns the body of rawURL as text.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	var body []byte
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		body, err = f.fetchHTTP(ctx, u)
	case "file":
		body, err = f.fetchFile(u)
	default:
		return "", fmt.Errorf("%w: %q", ErrBadScheme, u.Scheme)
	}
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", ErrEmptyBody
	}
	return string(body), nil
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", u.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, u.Redacted())
	}
	return f.readLimited(resp.Body)
}

func (f *HTTPFetcher) fetchFile(u *url.URL) ([]byte, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return f.readLimited(file)
}

// readLimited reads r, failing with ErrTooLarge when more than maxSize bytes
// are available.
func (f *HTTPFetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxSize == 0 {
		return io.ReadAll(r)
	}
	limit := int64(f.maxSize.Bytes())
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: over %s", ErrTooLarge, f.maxSize.HumanReadable())
	}
	return data, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
