package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "canceled", err: fmt.Errorf("round trip: %w", context.Canceled), want: "canceled"},
		{
			name: "deadline inside url error",
			err:  &url.Error{Op: "Get", URL: "http://api", Err: context.DeadlineExceeded},
			want: "timeout",
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Get", URL: "http://api", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
			}},
			want: "connection_refused",
		},
		{name: "dns", err: fmt.Errorf("dial: %w", &net.DNSError{Name: "api.internal", Err: "no such host"}), want: "dns"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
