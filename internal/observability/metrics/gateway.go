package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/target/storefront-gateway/internal/observability/errors"
	"github.com/target/storefront-gateway/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// RequestMetric describes one request that finished inside the gateway pipeline.
type RequestMetric struct {
	Method   string
	Status   int
	Duration time.Duration
}

// EmitGatewayRequest counts and times a completed pipeline request.
func EmitGatewayRequest(sink statsd.Sink, in RequestMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"method":       in.Method,
		"status_class": statusClass(in.Status),
	}
	sink.Count("request", 1, tags)
	if in.Duration > 0 {
		sink.Timing("request.duration", in.Duration, CloneTags(tags))
	}
}

// EmitOriginRejected counts a request refused by the origin guard.
func EmitOriginRejected(sink statsd.Sink, method, reason string) {
	if sink == nil {
		return
	}
	sink.Count("origin.rejected", 1, map[string]string{"method": method, "reason": reason})
}

// EmitSessionIssued counts a freshly minted anonymous session.
func EmitSessionIssued(sink statsd.Sink) {
	if sink == nil {
		return
	}
	sink.Count("session.issued", 1, nil)
}

// IdentityMetric describes one credential resolution.
type IdentityMetric struct {
	Source   string
	Result   string
	Rotated  int
	Duration time.Duration
	Err      error
}

// EmitIdentityLookup records how a bearer credential was resolved.
func EmitIdentityLookup(sink statsd.Sink, in IdentityMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"source": in.Source, "result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("identity.lookup", 1, tags)
	if in.Rotated > 0 {
		sink.Count("identity.rotated_cookies", int64(in.Rotated), nil)
	}
	if in.Duration > 0 {
		sink.Timing("identity.lookup.duration", in.Duration, CloneTags(tags))
	}
}

// UpstreamMetric describes one upstream round trip.
type UpstreamMetric struct {
	Method   string
	Status   int
	Duration time.Duration
	Err      error
}

// EmitUpstream records an upstream call; failures carry an error_class tag.
func EmitUpstream(sink statsd.Sink, in UpstreamMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"method": in.Method, "result": ResultSuccess}
	if in.Err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(in.Err)
	} else {
		tags["status_class"] = statusClass(in.Status)
	}
	sink.Count("upstream.call", 1, tags)
	if in.Duration > 0 {
		sink.Timing("upstream.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
