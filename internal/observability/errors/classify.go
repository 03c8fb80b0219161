package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"
	"syscall"
)

// Classify returns a normalized error class suitable for tagging metrics and logs.
// Well-known transport failures map to stable names; anything else falls back to
// the innermost concrete type name in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused"
	case goerrors.Is(err, syscall.ECONNRESET):
		return "connection_reset"
	}

	var dnsErr *net.DNSError
	if goerrors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
