package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/storefront-gateway/internal/domain/edge"
	"github.com/target/storefront-gateway/internal/observability/metrics"
	"github.com/target/storefront-gateway/internal/observability/statsd"
	"github.com/target/storefront-gateway/internal/service"
)

// Error codes written by the gateway itself.
const (
	ErrCodeUpstreamUnreachable = "upstream_unreachable"
	ErrCodeUpstreamEncoding    = "upstream_encoding_unsupported"
	ErrCodeSessionUnavailable  = "session_unavailable"
)

// GatewayOptions groups dependencies for Gateway.
type GatewayOptions struct {
	Guard       *OriginGuard
	Sessions    *service.SessionService
	Credentials *service.CredentialResolver
	Forwarder   *Forwarder

	SharedSecretHeader string
	SharedSecret       string

	// SecureCookies sets the Secure attribute on the session cookie (production).
	SecureCookies bool
	// VerboseErrors names the full upstream URL in 502 bodies (development).
	VerboseErrors bool

	Logger *slog.Logger
	// Diagnostics receives per-request proxy traces. Nil discards them.
	Diagnostics *slog.Logger
	Metrics     statsd.Sink
}

// Gateway runs the edge pipeline: origin guard, session identity, credential
// resolution, forwarding, and response finalization.
type Gateway struct {
	guard       *OriginGuard
	sessions    *service.SessionService
	credentials *service.CredentialResolver
	forwarder   *Forwarder

	secretHeader string
	secret       string
	secure       bool
	verbose      bool

	logger  *slog.Logger
	diag    *slog.Logger
	metrics statsd.Sink
}

// NewGateway constructs a Gateway.
func NewGateway(opts GatewayOptions) *Gateway {
	g := &Gateway{
		guard:        opts.Guard,
		sessions:     opts.Sessions,
		credentials:  opts.Credentials,
		forwarder:    opts.Forwarder,
		secretHeader: opts.SharedSecretHeader,
		secret:       opts.SharedSecret,
		secure:       opts.SecureCookies,
		verbose:      opts.VerboseErrors,
		logger:       opts.Logger,
		diag:         opts.Diagnostics,
		metrics:      opts.Metrics,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.diag == nil {
		g.diag = slog.New(slog.DiscardHandler)
	}
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	rc := g.requestContext(r)

	if d := g.guard.Check(r); !d.Allowed {
		g.guard.Reject(w, r, d)
		metrics.EmitGatewayRequest(g.metrics, metrics.RequestMetric{Method: r.Method, Status: http.StatusForbidden})
		return
	}

	sess, err := g.sessions.Resolve(strings.Join(rc.Header.Values("Cookie"), "; "))
	if err != nil {
		g.logger.ErrorContext(ctx, "session identity unavailable", "error", err, "request_id", rc.ID)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: ErrCodeSessionUnavailable, Err: errors.New("session unavailable")})
		return
	}

	cred, pending := g.credentials.Resolve(ctx, r)
	if sess.Issued {
		pending.Add(g.sessions.NewCookie(sess.Token, g.secure))
		metrics.EmitSessionIssued(g.metrics)
	}

	header := newUpstreamHeaders(rc.Header, g.secretHeader).
		withCredential(cred).
		withSession(sess).
		withRequestID(rc.ID, rc.ClientRequestID).
		withForwardedFor(r.RemoteAddr).
		withSharedSecret(g.secretHeader, g.secret).
		build()

	g.diag.InfoContext(ctx, "proxy request",
		slog.String("request_id", rc.ID),
		slog.String("method", rc.Method),
		slog.String("path", rc.Path),
		slog.String("credential", string(cred.Source)),
		slog.Bool("session_issued", sess.Issued),
		slog.Int("pending_cookies", pending.Len()),
	)

	upstreamStart := time.Now()
	resp, target, err := g.forwarder.Forward(ctx, r, header)
	metrics.EmitUpstream(g.metrics, metrics.UpstreamMetric{
		Method:   r.Method,
		Status:   statusOf(resp),
		Duration: time.Since(upstreamStart),
		Err:      err,
	})
	if err != nil {
		g.unreachable(w, r, rc, unreachableParams{Target: target, Pending: pending, Err: err})
		metrics.EmitGatewayRequest(g.metrics, metrics.RequestMetric{Method: r.Method, Status: http.StatusBadGateway, Duration: time.Since(start)})
		return
	}
	defer resp.Body.Close()

	g.diag.InfoContext(ctx, "proxy response",
		slog.String("request_id", rc.ID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("content_length", resp.ContentLength),
		slog.String("content_encoding", resp.Header.Get("Content-Encoding")),
	)

	err = finalize(w, finalizeParams{
		Upstream:          resp,
		Pending:           pending,
		RequestID:         rc.ID,
		ClientRequestID:   rc.ClientRequestID,
		SessionCookieName: g.sessions.CookieName(),
	})
	metrics.EmitGatewayRequest(g.metrics, metrics.RequestMetric{Method: r.Method, Status: resp.StatusCode, Duration: time.Since(start)})
	g.handleFinalizeError(w, r, rc, pending, err)
}

func (g *Gateway) requestContext(r *http.Request) edge.RequestContext {
	return edge.RequestContext{
		Method:          r.Method,
		Path:            r.URL.Path,
		RawQuery:        r.URL.RawQuery,
		Header:          r.Header,
		Body:            r.Body,
		ID:              RequestIDFromContext(r.Context()),
		ClientRequestID: ClientRequestIDFromContext(r.Context()),
	}
}

type unreachableParams struct {
	Target  *url.URL
	Pending edge.PendingCookies
	Err     error
}

// unreachable writes the 502 response. Pending cookies are still applied so a
// rotated provider session is not lost with the failed call.
func (g *Gateway) unreachable(w http.ResponseWriter, r *http.Request, rc edge.RequestContext, p unreachableParams) {
	if errors.Is(p.Err, context.Canceled) && r.Context().Err() != nil {
		g.logger.DebugContext(r.Context(), "client went away before upstream answered", "request_id", rc.ID)
	} else {
		g.logger.ErrorContext(r.Context(), "upstream unreachable",
			"error", p.Err,
			"method", rc.Method,
			"path", rc.Path,
			"request_id", rc.ID,
		)
	}
	p.Pending.Apply(w.Header())
	WriteError(w, ErrorParams{
		Code:    http.StatusBadGateway,
		ErrCode: ErrCodeUpstreamUnreachable,
		Err:     fmt.Errorf("upstream unreachable: %s", DescribeTarget(p.Target, g.verbose)),
	})
}

func (g *Gateway) handleFinalizeError(w http.ResponseWriter, r *http.Request, rc edge.RequestContext, pending edge.PendingCookies, err error) {
	switch {
	case err == nil:
	case errors.Is(err, errUpstreamEncoding):
		// Nothing has been written yet.
		g.logger.ErrorContext(r.Context(), "upstream body could not be decoded", "error", err, "request_id", rc.ID)
		pending.Apply(w.Header())
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: ErrCodeUpstreamEncoding,
			Err:     errors.New("upstream response encoding is not supported"),
		})
	case errors.Is(err, errClientWrite):
		g.logger.DebugContext(r.Context(), "client write failed mid-stream", "error", err, "request_id", rc.ID)
	default:
		// Headers are already sent; abort so the caller sees a truncated response.
		g.logger.ErrorContext(r.Context(), "upstream body stream failed", "error", err, "request_id", rc.ID)
		panic(http.ErrAbortHandler)
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
