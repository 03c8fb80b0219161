package httpx

import "context"

// requestIDsKey is an unexported context key type to avoid collisions across packages.
type requestIDsKey struct{}

type requestIDs struct {
	id     string
	client string
}

// withRequestIDs returns a child context carrying the correlation id and the
// caller-supplied client request id (empty when absent or rejected).
func withRequestIDs(ctx context.Context, id, clientID string) context.Context {
	return context.WithValue(ctx, requestIDsKey{}, requestIDs{id: id, client: clientID})
}

// RequestIDFromContext returns the gateway correlation id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids.id
}

// ClientRequestIDFromContext returns the accepted x-client-request-id value.
func ClientRequestIDFromContext(ctx context.Context) string {
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids.client
}
