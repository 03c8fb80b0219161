package httpx

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/target/storefront-gateway/internal/domain/edge"
)

const (
	HeaderSessionID        = "X-Session-Id"
	HeaderSessionSignature = "X-Session-Signature"
)

// hopByHopHeaders are meaningful for a single connection only (RFC 9110 7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopByHop deletes hop-by-hop headers, including any named in Connection.
func removeHopByHop(h http.Header) {
	for _, v := range h.Values("Connection") {
		for name := range strings.SplitSeq(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

// upstreamHeaders builds the header set for the upstream request. Each with*
// stage returns the builder so the final set can be read top to bottom.
type upstreamHeaders struct {
	h http.Header
}

// newUpstreamHeaders clones the inbound headers and removes everything the
// gateway must not relay: hop-by-hop headers, Host, compression negotiation,
// and gateway-owned headers a client could try to spoof.
func newUpstreamHeaders(inbound http.Header, gatewayOwned ...string) *upstreamHeaders {
	h := inbound.Clone()
	if h == nil {
		h = http.Header{}
	}
	removeHopByHop(h)
	for _, name := range []string{
		"Host",
		"Accept-Encoding",
		HeaderSessionID,
		HeaderSessionSignature,
		HeaderRequestID,
		HeaderClientRequestID,
	} {
		h.Del(name)
	}
	for _, name := range gatewayOwned {
		if name != "" {
			h.Del(name)
		}
	}
	return &upstreamHeaders{h: h}
}

// withCredential sets Authorization for credentials the gateway resolved.
// An explicit caller credential is already present and left untouched.
func (b *upstreamHeaders) withCredential(c edge.Credential) *upstreamHeaders {
	switch c.Source {
	case edge.CredentialProvider, edge.CredentialCache:
		if c.Present() {
			b.h.Set("Authorization", c.AuthorizationValue())
		}
	}
	return b
}

func (b *upstreamHeaders) withSession(s edge.Session) *upstreamHeaders {
	b.h.Set(HeaderSessionID, s.Token)
	b.h.Set(HeaderSessionSignature, s.Signature)
	return b
}

func (b *upstreamHeaders) withRequestID(id, clientID string) *upstreamHeaders {
	if id != "" {
		b.h.Set(HeaderRequestID, id)
	}
	if clientID != "" {
		b.h.Set(HeaderClientRequestID, clientID)
	}
	return b
}

// withForwardedFor appends the peer address to X-Forwarded-For.
func (b *upstreamHeaders) withForwardedFor(remoteAddr string) *upstreamHeaders {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || ip == "" {
		return b
	}
	if prior := b.h.Values("X-Forwarded-For"); len(prior) > 0 {
		ip = strings.Join(prior, ", ") + ", " + ip
	}
	b.h.Set("X-Forwarded-For", ip)
	return b
}

func (b *upstreamHeaders) withSharedSecret(name, value string) *upstreamHeaders {
	if name != "" && value != "" {
		b.h.Set(name, value)
	}
	return b
}

func (b *upstreamHeaders) build() http.Header { return b.h }
