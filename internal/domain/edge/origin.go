package edge

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidOrigin is returned when a value cannot be reduced to scheme://host[:port].
var ErrInvalidOrigin = errors.New("invalid origin")

// NormalizeOrigin reduces an Origin header value, Referer URL, or configured
// origin to lower-case scheme://host[:port], dropping default ports.
// The opaque origin "null" is rejected.
func NormalizeOrigin(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return "", ErrInvalidOrigin
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidOrigin
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidOrigin
	}
	return OriginFromParts(scheme, u.Host)
}

// OriginFromParts builds a normalized origin from a scheme and a host[:port].
func OriginFromParts(scheme, hostport string) (string, error) {
	scheme = strings.ToLower(scheme)
	hostport = strings.ToLower(strings.TrimSpace(hostport))
	if hostport == "" || strings.ContainsAny(hostport, "/@ ") {
		return "", ErrInvalidOrigin
	}
	host, port := hostport, ""
	if h, p, err := net.SplitHostPort(hostport); err == nil {
		host, port = h, p
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", ErrInvalidOrigin
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + strings.Trim(host, "[]") + "]"
	}
	if port != "" {
		return scheme + "://" + host + ":" + port, nil
	}
	return scheme + "://" + host, nil
}
