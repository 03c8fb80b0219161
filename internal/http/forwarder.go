package httpx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ForwarderConfig configures the upstream client.
type ForwarderConfig struct {
	// UpstreamURL is the upstream base; its path is prefixed to every forwarded path.
	UpstreamURL string
	// ResponseHeaderTimeout bounds the wait for upstream headers; zero means no limit.
	ResponseHeaderTimeout time.Duration
	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
}

// Forwarder performs exactly one upstream call per inbound request. It does not retry.
type Forwarder struct {
	base   *url.URL
	client *http.Client
}

// NewForwarder parses the upstream base URL and builds a client that never
// negotiates compression and never follows redirects.
func NewForwarder(cfg ForwarderConfig) (*Forwarder, error) {
	base, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("upstream url must be absolute http(s), got %q", cfg.UpstreamURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableCompression = true
		t.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
		t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		transport = t
	}

	return &Forwarder{
		base: base,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Target maps the inbound path and query onto the upstream base.
func (f *Forwarder) Target(r *http.Request) *url.URL {
	u := *f.base
	u.Path = f.base.Path + r.URL.Path
	if r.URL.RawPath != "" {
		u.RawPath = f.base.EscapedPath() + r.URL.RawPath
	}
	u.RawQuery = r.URL.RawQuery
	return &u
}

// Forward streams r to the upstream with the given headers. Cancelling ctx
// (the inbound request context) aborts the upstream call.
func (f *Forwarder) Forward(ctx context.Context, r *http.Request, header http.Header) (*http.Response, *url.URL, error) {
	target := f.Target(r)

	body, length := requestBody(r)
	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		return nil, target, fmt.Errorf("build upstream request: %w", err)
	}
	out.Header = header
	out.ContentLength = length

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, target, fmt.Errorf("upstream %s %s: %w", r.Method, target.Path, unwrapURLError(err))
	}
	return resp, target, nil
}

// DescribeTarget names the target for a 502 body: the full URL when verbose,
// otherwise only the path so internal hosts are not exposed.
func DescribeTarget(target *url.URL, verbose bool) string {
	if target == nil {
		return "upstream"
	}
	if verbose {
		return target.String()
	}
	return target.EscapedPath()
}

// requestBody returns the body to stream and its length (-1 when unknown).
// Body-less methods and empty bodies forward http.NoBody.
func requestBody(r *http.Request) (io.ReadCloser, int64) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return http.NoBody, 0
	}
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return http.NoBody, 0
	}
	return r.Body, r.ContentLength
}

func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
