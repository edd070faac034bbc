// Package auth provides HMAC-based API key authentication for gRPC services.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/groundskeeper/internal/core/db"
	"github.com/solatis/groundskeeper/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// userIDKey is the context key for storing the authenticated CRM user.
const userIDKey = contextKey("user_id")

// lastUsedThrottle bounds how often last_used_at is written per key.
const lastUsedThrottle = time.Minute

// Queries interface defines database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	log     zerolog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		log:     log.With().Str("component", "auth").Logger(),
		now:     time.Now,
	}
}

type apiKeyRow struct {
	APIKeyID   string        `db:"api_key_id"`
	UserID     types.UserID  `db:"user_id"`
	RevokedAt  *db.Timestamp `db:"revoked_at"`
	LastUsedAt *db.Timestamp `db:"last_used_at"`
}

// Authenticate validates an API key and returns the owning user on success.
// Returns specific error for each failure mode.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.UserID, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return 0, err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return 0, ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	// key_hash is unique, so at most one row comes back
	var row apiKeyRow
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidKey
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if row.RevokedAt != nil {
		return 0, ErrKeyRevoked
	}

	now := a.now().UTC()
	if row.LastUsedAt == nil || now.Sub(row.LastUsedAt.Time) > lastUsedThrottle {
		if _, err := a.queries.Exec(ctx, "update-last-used", db.NewTimestamp(now), row.APIKeyID); err != nil {
			a.log.Warn().Err(err).Str("api_key_id", row.APIKeyID).Msg("failed to update last_used_at")
		}
	}

	return row.UserID, nil
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Methods listed in skip (full method names) pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(skip))
	for _, m := range skip {
		open[m] = true
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		userID, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, ErrStore):
				a.log.Error().Err(err).Str("method", info.FullMethod).Msg("api key lookup failed")
				return nil, status.Error(codes.Unavailable, ErrStore.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		return handler(WithUserID(ctx, userID), req)
	}
}

// WithUserID returns a context carrying the authenticated user.
func WithUserID(ctx context.Context, id types.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the authenticated user from context.
func UserIDFromContext(ctx context.Context) (types.UserID, bool) {
	id, ok := ctx.Value(userIDKey).(types.UserID)
	return id, ok
}
