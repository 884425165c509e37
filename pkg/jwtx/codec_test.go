package jwtx_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nomadpay/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newCodec(t *testing.T, now time.Time) *jwtx.Codec {
	t.Helper()
	c, err := jwtx.NewCodec(testSecret, "authcore-test")
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return now })
}

func TestNewCodecRejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewCodec([]byte("short"), "x")
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Now()
	c := newCodec(t, now)

	token, issued, err := c.IssueFor("01HZX", jwtx.TokenTypeAccess, "user", time.Hour)
	require.NoError(t, err)

	claims, err := c.Verify(token, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "01HZX", claims.Subject)
	require.Equal(t, jwtx.TokenTypeAccess, claims.Type)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, "authcore-test", claims.Issuer)
	require.Equal(t, issued.ID, claims.ID)
}

func TestTokensAreUniquePerIssue(t *testing.T) {
	c := newCodec(t, time.Now())

	a, _, err := c.IssueFor("sub", jwtx.TokenTypeRefresh, "", time.Hour)
	require.NoError(t, err)
	b, _, err := c.IssueFor("sub", jwtx.TokenTypeRefresh, "", time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	c := newCodec(t, time.Now())

	refresh, _, err := c.IssueFor("sub", jwtx.TokenTypeRefresh, "user", time.Hour)
	require.NoError(t, err)
	_, err = c.Verify(refresh, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrWrongType)

	access, _, err := c.IssueFor("sub", jwtx.TokenTypeAccess, "user", time.Hour)
	require.NoError(t, err)
	_, err = c.Verify(access, jwtx.TokenTypeRefresh)
	require.ErrorIs(t, err, jwtx.ErrWrongType)
}

func TestVerifyExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := newCodec(t, issuedAt).IssueFor("sub", jwtx.TokenTypeAccess, "user", time.Hour)
	require.NoError(t, err)

	t.Run("accepted before ttl elapses", func(t *testing.T) {
		_, err := newCodec(t, issuedAt.Add(59*time.Minute)).Verify(token, jwtx.TokenTypeAccess)
		require.NoError(t, err)
	})

	t.Run("rejected once ttl elapses", func(t *testing.T) {
		claims, err := newCodec(t, issuedAt.Add(time.Hour)).Verify(token, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrExpired)
		require.Equal(t, "sub", claims.Subject)

		_, err = newCodec(t, issuedAt.Add(2*time.Hour)).Verify(token, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("signature is checked before expiry", func(t *testing.T) {
		other, err := jwtx.NewCodec([]byte("ffffffffffffffffffffffffffffffff"), "x")
		require.NoError(t, err)
		_, err = other.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) }).
			Verify(token, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})
}

func TestVerifyRejectsTampering(t *testing.T) {
	c := newCodec(t, time.Now())
	token, _, err := c.IssueFor("sub", jwtx.TokenTypeAccess, "user", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	t.Run("payload swapped", func(t *testing.T) {
		forged := base64.RawURLEncoding.EncodeToString(
			[]byte(`{"sub":"someone-else","typ":"access","role":"admin","exp":4102444800}`))
		_, err := c.Verify(parts[0]+"."+forged+"."+parts[2], jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("signature stripped", func(t *testing.T) {
		_, err := c.Verify(parts[0]+"."+parts[1]+".", jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewClaims("sub", jwtx.TokenTypeAccess, "admin", "x", time.Hour, time.Now())
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = c.Verify(unsigned, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	now := time.Now()
	foreign, err := jwtx.NewCodec(testSecret, "someone-else")
	require.NoError(t, err)
	token, _, err := foreign.WithClock(func() time.Time { return now }).
		IssueFor("sub", jwtx.TokenTypeAccess, "admin", time.Hour)
	require.NoError(t, err)

	_, err = newCodec(t, now).Verify(token, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	c := newCodec(t, time.Now())
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Verify(raw, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrMalformed, raw)
	}
}

func TestIssueRequiresExpiry(t *testing.T) {
	c := newCodec(t, time.Now())
	_, err := c.Issue(jwtx.Claims{Type: jwtx.TokenTypeAccess})
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
