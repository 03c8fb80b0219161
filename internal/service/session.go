package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/storefront-gateway/internal/domain/edge"
)

const (
	sessionTokenRandomBytes = 16
	sessionTokenHexLen      = sessionTokenRandomBytes * 2

	// DefaultSessionCookieName is used when no cookie name is configured.
	DefaultSessionCookieName = "sf_session"
	defaultSessionMaxAge     = 30 * 24 * time.Hour
)

// ErrMissingSecret is returned when the session service is built without a signing secret.
var ErrMissingSecret = errors.New("session signing secret is required")

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Secret       []byte
	CookieName   string
	CookieMaxAge time.Duration
	CookieDomain string
	// Rand overrides the entropy source; crypto/rand.Reader when nil.
	Rand io.Reader
}

// SessionService issues and signs anonymous session tokens. It holds only read-only state.
type SessionService struct {
	secret       []byte
	cookieName   string
	cookieMaxAge time.Duration
	cookieDomain string
	rand         io.Reader
}

// NewSessionService constructs a SessionService. An empty secret is a configuration error.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if len(opts.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	s := &SessionService{
		secret:       append([]byte(nil), opts.Secret...),
		cookieName:   opts.CookieName,
		cookieMaxAge: opts.CookieMaxAge,
		cookieDomain: opts.CookieDomain,
		rand:         opts.Rand,
	}
	if s.cookieName == "" {
		s.cookieName = DefaultSessionCookieName
	}
	if s.cookieMaxAge <= 0 {
		s.cookieMaxAge = defaultSessionMaxAge
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	return s, nil
}

// CookieName returns the session cookie name.
func (s *SessionService) CookieName() string { return s.cookieName }

// Resolve reads the session cookie from the raw Cookie header. A well-formed token is reused;
// an absent or malformed one is replaced by a fresh token flagged for issuance.
// The signature is always recomputed.
func (s *SessionService) Resolve(rawCookieHeader string) (edge.Session, error) {
	token := ReadCookie(rawCookieHeader, s.cookieName)
	issued := false
	if !ValidToken(token) {
		minted, err := s.mint()
		if err != nil {
			return edge.Session{}, err
		}
		token, issued = minted, true
	}
	return edge.Session{Token: token, Signature: s.Sign(token), Issued: issued}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of token.
func (s *SessionService) Sign(token string) string {
	return SignToken(s.secret, token)
}

// Verify reports whether signature is the valid signature of token.
func (s *SessionService) Verify(token, signature string) bool {
	return VerifyToken(s.secret, token, signature)
}

// NewCookie builds the session cookie written back to the browser.
func (s *SessionService) NewCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   int(s.cookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *SessionService) mint() (string, error) {
	b := make([]byte, sessionTokenRandomBytes)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return edge.SessionTokenPrefix + hex.EncodeToString(b), nil
}

// SignToken computes hex(HMAC-SHA256(secret, token)).
func SignToken(secret []byte, token string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyToken checks signature against token in constant time.
func VerifyToken(secret []byte, token, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	return hmac.Equal(mac.Sum(nil), want)
}

// ValidToken reports whether token is the prefix followed by exactly 32 lowercase hex characters.
func ValidToken(token string) bool {
	rest, ok := strings.CutPrefix(token, edge.SessionTokenPrefix)
	if !ok || len(rest) != sessionTokenHexLen {
		return false
	}
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ReadCookie scans a raw Cookie header for name and returns its percent-decoded value.
// The first match wins; an undecodable value reads as absent.
func ReadCookie(rawCookieHeader, name string) string {
	for part := range strings.SplitSeq(rawCookieHeader, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(k) != name {
			continue
		}
		v = strings.Trim(strings.TrimSpace(v), `"`)
		decoded, err := url.PathUnescape(v)
		if err != nil {
			return ""
		}
		return decoded
	}
	return ""
}
