package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/target/storefront-gateway/internal/domain/edge"
	"github.com/target/storefront-gateway/internal/observability/metrics"
	"github.com/target/storefront-gateway/internal/observability/statsd"
)

// Reasons reported by OriginGuard.Check for rejected requests.
const (
	OriginReasonMissing   = "missing_origin"
	OriginReasonInvalid   = "invalid_origin"
	OriginReasonUntrusted = "untrusted_origin"
)

// ErrCodeOriginRejected is the machine-readable error code of a CSRF rejection.
const ErrCodeOriginRejected = "csrf_origin_rejected"

// OriginGuardConfig holds configuration for the origin guard.
type OriginGuardConfig struct {
	// AllowedOrigins are trusted in addition to the origin the request arrived on.
	AllowedOrigins []string
	// TrustForwardedHeaders lets X-Forwarded-Proto and X-Forwarded-Host describe the serving origin.
	TrustForwardedHeaders bool
	Logger                *slog.Logger
	Metrics               statsd.Sink
}

// OriginGuard rejects state-changing requests whose Origin (or Referer) is not trusted.
// It keeps no per-request state.
type OriginGuard struct {
	allowed        []string
	trustForwarded bool
	logger         *slog.Logger
	metrics        statsd.Sink
}

// OriginDecision is the outcome of OriginGuard.Check.
type OriginDecision struct {
	Allowed bool
	// Origin is the normalized claimed origin, when one could be determined.
	Origin string
	Reason string
}

// NewOriginGuard normalizes the configured origins. An entry that is not an
// http(s) origin is a configuration error.
func NewOriginGuard(cfg OriginGuardConfig) (*OriginGuard, error) {
	g := &OriginGuard{
		trustForwarded: cfg.TrustForwardedHeaders,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, raw := range cfg.AllowedOrigins {
		o, err := edge.NormalizeOrigin(raw)
		if err != nil {
			return nil, fmt.Errorf("allowed origin %q: %w", raw, err)
		}
		if !slices.Contains(g.allowed, o) {
			g.allowed = append(g.allowed, o)
		}
	}
	return g, nil
}

// Check decides whether r may proceed. Safe methods always pass.
func (g *OriginGuard) Check(r *http.Request) OriginDecision {
	if !requiresOriginCheck(r.Method) {
		return OriginDecision{Allowed: true}
	}

	claimed, reason := claimedOrigin(r)
	if reason != "" {
		return OriginDecision{Reason: reason}
	}
	if slices.Contains(g.trusted(r), claimed) {
		return OriginDecision{Allowed: true, Origin: claimed}
	}
	return OriginDecision{Origin: claimed, Reason: OriginReasonUntrusted}
}

// Reject writes the 403 response for a failed decision.
func (g *OriginGuard) Reject(w http.ResponseWriter, r *http.Request, d OriginDecision) {
	g.logger.WarnContext(r.Context(), "cross-origin request rejected",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("origin", d.Origin),
		slog.String("reason", d.Reason),
		slog.String("request_id", RequestIDFromContext(r.Context())),
	)
	metrics.EmitOriginRejected(g.metrics, r.Method, d.Reason)
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: ErrCodeOriginRejected,
		Err:     errors.New("request origin is not allowed"),
	})
}

// trusted is recomputed per request because the serving host can vary.
func (g *OriginGuard) trusted(r *http.Request) []string {
	out := make([]string, 0, len(g.allowed)+1)
	if serving, err := g.servingOrigin(r); err == nil {
		out = append(out, serving)
	}
	return append(out, g.allowed...)
}

func (g *OriginGuard) servingOrigin(r *http.Request) (string, error) {
	scheme := "http"
	if r.TLS != nil || (g.trustForwarded && isForwardedHTTPS(r)) {
		scheme = "https"
	}
	host := r.Host
	if g.trustForwarded {
		if fh := firstListValue(r.Header.Get("X-Forwarded-Host")); fh != "" {
			host = fh
		}
	}
	return edge.OriginFromParts(scheme, host)
}

func claimedOrigin(r *http.Request) (string, string) {
	if raw := r.Header.Get("Origin"); raw != "" {
		o, err := edge.NormalizeOrigin(raw)
		if err != nil {
			return "", OriginReasonInvalid
		}
		return o, ""
	}
	if raw := r.Header.Get("Referer"); raw != "" {
		o, err := edge.NormalizeOrigin(raw)
		if err != nil {
			return "", OriginReasonInvalid
		}
		return o, ""
	}
	return "", OriginReasonMissing
}

// requiresOriginCheck returns true if the HTTP method can change state.
// Safe methods (GET, HEAD, OPTIONS, TRACE) are exempt.
func requiresOriginCheck(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

// isForwardedHTTPS checks if the request was forwarded over HTTPS.
// Handles comma-separated values in X-Forwarded-Proto header.
func isForwardedHTTPS(r *http.Request) bool {
	return strings.EqualFold(firstListValue(r.Header.Get("X-Forwarded-Proto")), "https")
}

// firstListValue returns the first entry of a comma-separated header, which
// is the one set by the edge closest to the client.
func firstListValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
