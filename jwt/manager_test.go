package jwt

import (
	"context"
	"errors"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "goOTP",
	})
	require.NoError(t, err)
	return m
}

func TestIssueProducesTypedPair(t *testing.T) {
	m := newHSManager(t)
	user := goOTP.Identity{ID: "u1", Email: "alice@example.com"}

	pair, err := m.Issue(context.Background(), user)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessExpiresAt, 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), pair.RefreshExpiresAt, 5*time.Second)

	claims, err := m.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)

	_, err = m.ParseAccess(pair.Refresh)
	assert.Error(t, err, "refresh token must not pass as access")
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	m := newHSManager(t)

	pair, err := m.Issue(context.Background(), goOTP.Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = m.Refresh(context.Background(), pair.Access)
	assert.True(t, errors.Is(err, goOTP.ErrInvalidToken), "got %v", err)

	_, err = m.Refresh(context.Background(), "garbage")
	assert.True(t, errors.Is(err, goOTP.ErrInvalidToken), "got %v", err)
}

func TestRefreshIsSingleUseWithStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	m := newHSManager(t).WithRefreshStore(rdb)
	ctx := context.Background()

	pair, err := m.Issue(ctx, goOTP.Identity{ID: "u1", Email: "alice@example.com"})
	require.NoError(t, err)

	next, err := m.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	claims, err := m.ParseAccess(next.Access)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)

	_, err = m.Refresh(ctx, pair.Refresh)
	assert.True(t, errors.Is(err, goOTP.ErrInvalidToken), "replay must fail, got %v", err)

	_, err = m.Refresh(ctx, next.Refresh)
	assert.NoError(t, err)
}

func TestRefreshStoreOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	m := newHSManager(t).WithRefreshStore(rdb)
	pair, err := m.Issue(context.Background(), goOTP.Identity{ID: "u1"})
	require.NoError(t, err)

	mr.Close()
	_, err = m.Refresh(context.Background(), pair.Refresh)
	assert.True(t, errors.Is(err, goOTP.ErrStoreUnavailable), "got %v", err)
}

func TestEd25519VerifyOnlyManagerCannotIssue(t *testing.T) {
	pub, priv := newEdKeys(t)

	signer, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	require.NoError(t, err)
	verifier, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	require.NoError(t, err)

	pair, err := signer.Issue(context.Background(), goOTP.Identity{ID: "u9"})
	require.NoError(t, err)

	claims, err := verifier.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "u9", claims.Subject)

	_, err = verifier.Issue(context.Background(), goOTP.Identity{ID: "u9"})
	assert.Error(t, err)
}
