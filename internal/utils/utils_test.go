package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    now := time.Now()
    tok, err := NewAccessToken("s3cret", "user-1", "admin", time.Hour, now)
    require.NoError(t, err)
    assert.WithinDuration(t, now.Add(time.Hour), tok.Exp, time.Second)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "user-1", claims.Subject)
    assert.Equal(t, "admin", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
    now := time.Now()
    good, err := NewAccessToken("s3cret", "user-1", "user", time.Hour, now)
    require.NoError(t, err)
    expired, err := NewAccessToken("s3cret", "user-1", "user", time.Minute, now.Add(-time.Hour))
    require.NoError(t, err)

    tests := []struct {
        name, secret, raw string
    }{
        {"wrong secret", "other", good.Token},
        {"expired", "s3cret", expired.Token},
        {"garbage", "s3cret", "not.a.jwt"},
        {"empty", "s3cret", ""},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            _, err := ParseAccessToken(tt.secret, tt.raw)
            assert.ErrorIs(t, err, ErrInvalidToken)
        })
    }
}

func TestParseAccessTokenWithClock(t *testing.T) {
    issued := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
    tok, err := NewAccessToken("s3cret", "user-1", "user", 15*time.Minute, issued)
    require.NoError(t, err)

    at := func(ts time.Time) jwt.ParserOption {
        return jwt.WithTimeFunc(func() time.Time { return ts })
    }

    claims, err := ParseAccessToken("s3cret", tok.Token, at(issued.Add(10*time.Minute)))
    require.NoError(t, err)
    assert.Equal(t, "user-1", claims.Subject)

    _, err = ParseAccessToken("s3cret", tok.Token, at(issued.Add(16*time.Minute)))
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
    a, err := NewRefreshToken(24*time.Hour, time.Now())
    require.NoError(t, err)
    b, err := NewRefreshToken(24*time.Hour, time.Now())
    require.NoError(t, err)

    assert.Len(t, a.Raw, 96)
    assert.NotEqual(t, a.Raw, b.Raw)
    assert.Len(t, HashRefreshRaw(a.Raw), 64)
    assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestPasswordHashing(t *testing.T) {
    hash, err := HashPassword("correct horse", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "correct horse"))
    assert.False(t, VerifyPassword(hash, "wrong horse"))
}
