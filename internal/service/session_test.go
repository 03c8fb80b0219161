package service

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()
	svc, err := NewSessionService(SessionServiceOptions{Secret: []byte("test-secret")})
	require.NoError(t, err)
	return svc
}

func TestNewSessionService_RequiresSecret(t *testing.T) {
	_, err := NewSessionService(SessionServiceOptions{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestSignature_RoundTrip(t *testing.T) {
	secret := []byte("primary")
	other := []byte("secondary")

	for _, token := range []string{"sess_00000000000000000000000000000000", "sess_deadbeefdeadbeefdeadbeefdeadbeef", ""} {
		sig := SignToken(secret, token)
		assert.Len(t, sig, 64)
		assert.Equal(t, strings.ToLower(sig), sig)
		assert.True(t, VerifyToken(secret, token, sig), "token %q", token)
		assert.False(t, VerifyToken(other, token, sig), "token %q with wrong secret", token)
	}

	assert.False(t, VerifyToken(secret, "sess_x", "not-hex"))
}

func TestValidToken(t *testing.T) {
	tests := map[string]bool{
		"sess_0123456789abcdef0123456789abcdef":  true,
		"sess_0123456789ABCDEF0123456789abcdef":  false,
		"sess_0123456789abcdef0123456789abcde":   false,
		"sess_0123456789abcdef0123456789abcdef0": false,
		"cart_0123456789abcdef0123456789abcdef":  false,
		"sess_0123456789abcdef0123456789abcdeg":  false,
		"":                                       false,
	}
	for token, want := range tests {
		assert.Equal(t, want, ValidToken(token), token)
	}
}

func TestReadCookie(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "single", header: "sf_session=abc", want: "abc"},
		{name: "among others", header: "theme=dark; sf_session=abc; sb-access-token=x", want: "abc"},
		{name: "no space separator", header: "theme=dark;sf_session=abc", want: "abc"},
		{name: "percent encoded", header: "sf_session=sess%5Fabc", want: "sess_abc"},
		{name: "quoted", header: `sf_session="abc"`, want: "abc"},
		{name: "prefix name does not match", header: "sf_session_old=abc", want: ""},
		{name: "bad escape", header: "sf_session=%zz", want: ""},
		{name: "absent", header: "theme=dark", want: ""},
		{name: "empty header", header: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadCookie(tt.header, "sf_session"))
		})
	}
}

func TestSessionService_ResolveReusesValidToken(t *testing.T) {
	svc := newTestSessionService(t)
	token := "sess_0123456789abcdef0123456789abcdef"

	sess, err := svc.Resolve("theme=dark; sf_session=" + token)
	require.NoError(t, err)
	assert.False(t, sess.Issued)
	assert.Equal(t, token, sess.Token)
	assert.True(t, svc.Verify(token, sess.Signature))
}

func TestSessionService_ResolveMintsOnMissingOrMalformed(t *testing.T) {
	svc := newTestSessionService(t)

	for _, header := range []string{"", "sf_session=forged", "sf_session=sess_ZZZZ"} {
		sess, err := svc.Resolve(header)
		require.NoError(t, err)
		assert.True(t, sess.Issued, header)
		assert.True(t, ValidToken(sess.Token), sess.Token)
		assert.Equal(t, svc.Sign(sess.Token), sess.Signature)
	}
}

func TestSessionService_MintsDistinctTokens(t *testing.T) {
	svc := newTestSessionService(t)
	a, err := svc.Resolve("")
	require.NoError(t, err)
	b, err := svc.Resolve("")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestSessionService_DeterministicRand(t *testing.T) {
	svc, err := NewSessionService(SessionServiceOptions{
		Secret: []byte("k"),
		Rand:   bytes.NewReader(bytes.Repeat([]byte{0xab}, 16)),
	})
	require.NoError(t, err)
	sess, err := svc.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "sess_abababababababababababababababab", sess.Token)
}

func TestSessionService_RandFailure(t *testing.T) {
	svc, err := NewSessionService(SessionServiceOptions{
		Secret: []byte("k"),
		Rand:   iotest.ErrReader(errors.New("entropy exhausted")),
	})
	require.NoError(t, err)
	_, err = svc.Resolve("")
	assert.ErrorContains(t, err, "generate session token")
}

func TestSessionService_NewCookie(t *testing.T) {
	svc := newTestSessionService(t)
	c := svc.NewCookie("sess_0123456789abcdef0123456789abcdef", true)

	assert.Equal(t, DefaultSessionCookieName, c.Name)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 30*24*60*60, c.MaxAge)

	assert.False(t, svc.NewCookie("sess_x", false).Secure)
}
