package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/groundskeeper/internal/core/db"
	"github.com/solatis/groundskeeper/internal/core/db/dbtest"
	"github.com/solatis/groundskeeper/internal/types"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("testsecret1234567890abcdefghijklmnop")

type keyFixture struct {
	store *db.Store
	auth  *Authenticator
	key   string
	keyID string
}

func newKeyFixture(t *testing.T, user types.UserID) *keyFixture {
	t.Helper()
	store := dbtest.NewStore(t)

	key, hash, err := GenerateAPIKey(testSecretID, testSecret)
	require.NoError(t, err)
	keyID, err := store.CreateAPIKey(context.Background(), "ci", hash, user)
	require.NoError(t, err)

	return &keyFixture{
		store: store,
		auth:  NewAuthenticator(map[string][]byte{testSecretID: testSecret}, store.Queries(), zerolog.Nop()),
		key:   key,
		keyID: keyID,
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newKeyFixture(t, 42)

	user, err := f.auth.Authenticate(ctx, f.key)
	require.NoError(t, err)
	assert.Equal(t, types.UserID(42), user)

	t.Run("unknown secret id", func(t *testing.T) {
		other := FormatAPIKey("fedcba9876543210fedcba9876543210", strings.Repeat("a", 64))
		_, err := f.auth.Authenticate(ctx, other)
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("well formed but never issued", func(t *testing.T) {
		other := FormatAPIKey(testSecretID, strings.Repeat("b", 64))
		_, err := f.auth.Authenticate(ctx, other)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "not-a-key")
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, f.store.RevokeAPIKey(ctx, f.keyID))
		_, err := f.auth.Authenticate(ctx, f.key)
		assert.ErrorIs(t, err, ErrKeyRevoked)

		assert.Error(t, f.store.RevokeAPIKey(ctx, f.keyID), "second revoke")
	})
}

// recordingQueries serves one api key row and counts last_used writes.
type recordingQueries struct {
	row     apiKeyRow
	getErr  error
	updates int
}

func (q *recordingQueries) Get(_ context.Context, _ string, dest interface{}, _ ...interface{}) error {
	if q.getErr != nil {
		return q.getErr
	}
	*dest.(*apiKeyRow) = q.row
	return nil
}

func (q *recordingQueries) Exec(_ context.Context, name string, args ...interface{}) (sql.Result, error) {
	if name == "update-last-used" {
		q.updates++
		ts := args[0].(db.Timestamp)
		q.row.LastUsedAt = &ts
	}
	return nil, nil
}

func TestAuthenticate_LastUsedThrottle(t *testing.T) {
	ctx := context.Background()
	key, _, err := GenerateAPIKey(testSecretID, testSecret)
	require.NoError(t, err)

	q := &recordingQueries{row: apiKeyRow{APIKeyID: "k1", UserID: 7}}
	a := NewAuthenticator(map[string][]byte{testSecretID: testSecret}, q, zerolog.Nop())
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := a.Authenticate(ctx, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.updates, "writes within a minute are throttled")

	now = now.Add(2 * time.Minute)
	_, err = a.Authenticate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, q.updates)
}

func TestUnaryInterceptor(t *testing.T) {
	f := newKeyFixture(t, 42)
	interceptor := f.auth.UnaryInterceptor("/grpc.health.v1.Health/Check")

	var seen types.UserID
	var authenticated bool
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen, authenticated = UserIDFromContext(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/groundskeeper.territory.v1.TerritoryService/MatchEntity"}

	t.Run("valid key injects user", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", f.key))
		resp, err := interceptor(ctx, nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.True(t, authenticated)
		assert.Equal(t, types.UserID(42), seen)
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("missing key", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "x"))
		_, err := interceptor(ctx, nil, info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("skipped method", func(t *testing.T) {
		authenticated = false
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
		require.NoError(t, err)
		assert.False(t, authenticated)
	})

	t.Run("store failure is unavailable", func(t *testing.T) {
		q := &recordingQueries{getErr: errors.New("disk I/O error")}
		a := NewAuthenticator(map[string][]byte{testSecretID: testSecret}, q, zerolog.Nop())
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", f.key))
		_, err := a.UnaryInterceptor()(ctx, nil, info, handler)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("revoked key is permission denied", func(t *testing.T) {
		require.NoError(t, f.store.RevokeAPIKey(context.Background(), f.keyID))
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", f.key))
		_, err := interceptor(ctx, nil, info, handler)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})
}
