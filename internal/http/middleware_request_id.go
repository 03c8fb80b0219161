package httpx

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"
)

const (
	// HeaderRequestID carries the gateway-generated correlation id upstream and back to the caller.
	HeaderRequestID = "X-Request-Id"
	// HeaderClientRequestID is an optional caller-chosen id echoed verbatim.
	HeaderClientRequestID = "X-Client-Request-Id"

	maxClientRequestIDLen = 128
)

// RequestID assigns every request a fresh correlation id and records the caller's
// x-client-request-id when it is a safe header value. Both are echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		clientID := acceptClientRequestID(r.Header.Get(HeaderClientRequestID))

		w.Header().Set(HeaderRequestID, id)
		if clientID != "" {
			w.Header().Set(HeaderClientRequestID, clientID)
		}
		next.ServeHTTP(w, r.WithContext(withRequestIDs(r.Context(), id, clientID)))
	})
}

func acceptClientRequestID(v string) string {
	if v == "" || len(v) > maxClientRequestIDLen || !httpguts.ValidHeaderFieldValue(v) {
		return ""
	}
	return v
}
