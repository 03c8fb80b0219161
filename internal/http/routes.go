package httpx

import (
	"errors"
	"net/http"
)

// APIPrefix is the path prefix proxied to the upstream service.
const APIPrefix = "/api/v1/"

// RouterOptions holds the handlers mounted by NewRouter.
type RouterOptions struct {
	Gateway http.Handler
}

// NewRouter mounts the gateway under /api/v1/ and the local health probe.
func NewRouter(opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle(APIPrefix, opts.Gateway)
	mux.HandleFunc("/", notFoundHandler)
	return mux
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("route not found")})
}
