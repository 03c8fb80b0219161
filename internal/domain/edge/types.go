package edge

// Package edge contains per-request domain types for the storefront gateway.
// It is pure and free of framework/adapter concerns.

import (
	"io"
	"net/http"
	"time"
)

// SessionTokenPrefix is the literal prefix of every anonymous session token.
const SessionTokenPrefix = "sess_"

// RequestContext is the stack-scoped view of one inbound call.
// It is created at request entry and discarded once the response is sent.
type RequestContext struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser

	// ID is the gateway-generated correlation id, unique per request.
	ID string
	// ClientRequestID is the caller-supplied x-client-request-id, empty when absent or invalid.
	ClientRequestID string
}

// Session is the anonymous session identity resolved for a request.
// The gateway never stores either value.
type Session struct {
	Token     string
	Signature string
	// Issued is true when Token was minted for this request and must be written back as a cookie.
	Issued bool
}

// CredentialSource records where a bearer credential came from.
type CredentialSource string

const (
	CredentialNone     CredentialSource = "none"
	CredentialExplicit CredentialSource = "explicit"
	CredentialProvider CredentialSource = "provider"
	CredentialCache    CredentialSource = "cache"
)

// Credential is a short-lived bearer token resolved for the upstream call.
type Credential struct {
	Token     string
	Source    CredentialSource
	ExpiresAt time.Time // zero when unknown
}

// Present reports whether a bearer token should be attached upstream.
func (c Credential) Present() bool { return c.Token != "" }

// AuthorizationValue returns the Authorization header value for the credential.
func (c Credential) AuthorizationValue() string {
	if c.Token == "" {
		return ""
	}
	return "Bearer " + c.Token
}
