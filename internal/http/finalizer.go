package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/target/storefront-gateway/internal/domain/edge"
)

const streamBufferSize = 32 * 1024

// finalizeParams groups everything the finalizer needs to write the outbound response.
type finalizeParams struct {
	Upstream          *http.Response
	Pending           edge.PendingCookies
	RequestID         string
	ClientRequestID   string
	SessionCookieName string
}

// finalize copies the upstream status, headers and body to w. Hop-by-hop and
// content-coding headers are dropped, correlation ids are echoed, and pending
// cookies are applied. The body is streamed, never buffered whole.
func finalize(w http.ResponseWriter, p finalizeParams) error {
	resp := p.Upstream
	body, err := decodedBody(resp)
	if err != nil {
		return err
	}
	defer body.Close()

	dst := w.Header()
	copyResponseHeaders(dst, resp.Header, p.SessionCookieName)
	if p.RequestID != "" {
		dst.Set(HeaderRequestID, p.RequestID)
	}
	if p.ClientRequestID != "" {
		dst.Set(HeaderClientRequestID, p.ClientRequestID)
	}
	p.Pending.Apply(dst)

	w.WriteHeader(resp.StatusCode)
	return stream(w, body, resp.ContentLength < 0)
}

// copyResponseHeaders replaces dst entries with upstream values, minus
// headers that describe the upstream connection or encoding, and minus any
// upstream attempt to set the gateway's own session cookie.
func copyResponseHeaders(dst, src http.Header, sessionCookie string) {
	h := src.Clone()
	removeHopByHop(h)
	h.Del("Content-Length")
	h.Del("Content-Encoding")

	if sessionCookie != "" {
		kept := h["Set-Cookie"][:0]
		for _, line := range h["Set-Cookie"] {
			if name, _, _ := strings.Cut(line, "="); strings.TrimSpace(name) != sessionCookie {
				kept = append(kept, line)
			}
		}
		if len(kept) == 0 {
			delete(h, "Set-Cookie")
		} else {
			h["Set-Cookie"] = kept
		}
	}

	for k, vv := range h {
		dst[k] = vv
	}
}

// decodedBody undoes a content-coding the upstream applied even though no
// compression was requested, so dropping Content-Encoding stays truthful.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	if resp.Body == nil {
		return http.NoBody, nil
	}
	if bodyless(resp) {
		return resp.Body, nil
	}
	coding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch coding {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return resp.Body, nil
			}
			return nil, fmt.Errorf("%w: gzip: %w", errUpstreamEncoding, err)
		}
		return &decodedReadCloser{Reader: zr, close: func() error { return errors.Join(zr.Close(), resp.Body.Close()) }}, nil
	case "deflate":
		fr := flate.NewReader(resp.Body)
		return &decodedReadCloser{Reader: fr, close: func() error { return errors.Join(fr.Close(), resp.Body.Close()) }}, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", errUpstreamEncoding, err)
		}
		return &decodedReadCloser{Reader: zr, close: func() error { zr.Close(); return resp.Body.Close() }}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUpstreamEncoding, coding)
	}
}

// bodyless reports responses that cannot carry content, whatever
// Content-Encoding they advertise.
func bodyless(resp *http.Response) bool {
	if resp.Body == http.NoBody || resp.ContentLength == 0 {
		return true
	}
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return true
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotModified:
		return true
	}
	return resp.StatusCode >= 100 && resp.StatusCode < 200
}

type decodedReadCloser struct {
	io.Reader
	close func() error
}

func (d *decodedReadCloser) Close() error { return d.close() }

// errUpstreamEncoding is returned before anything is written when the upstream
// body uses a content-coding the gateway cannot undo.
var errUpstreamEncoding = errors.New("unsupported upstream content-encoding")

// errClientWrite marks failures writing to the caller, as opposed to reading upstream.
var errClientWrite = errors.New("write to client")

// stream copies src to w with a fixed buffer, flushing after each chunk when
// the length is unknown so event streams are not held back.
func stream(w http.ResponseWriter, src io.Reader, flush bool) error {
	rc := http.NewResponseController(w)
	buf := make([]byte, streamBufferSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: %w", errClientWrite, werr)
			}
			if flush {
				if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
					return fmt.Errorf("%w: %w", errClientWrite, ferr)
				}
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read upstream body: %w", rerr)
		}
	}
}
