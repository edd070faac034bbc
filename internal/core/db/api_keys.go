package db

import (
	"context"
	"fmt"

	"github.com/solatis/groundskeeper/internal/types"
)

// CreateAPIKey stores the HMAC of a generated key for userID.
func (s *Store) CreateAPIKey(ctx context.Context, name string, keyHash []byte, userID types.UserID) (string, error) {
	id := types.NewAPIKeyID()
	if _, err := s.q.Exec(ctx, "insert-api-key", id, name, keyHash, userID, NewTimestamp(s.now())); err != nil {
		return "", fmt.Errorf("insert api key: %w", err)
	}
	return id, nil
}

// RevokeAPIKey marks a key revoked. Revoking twice is an error.
func (s *Store) RevokeAPIKey(ctx context.Context, apiKeyID string) error {
	res, err := s.q.Exec(ctx, "revoke-api-key", NewTimestamp(s.now()), apiKeyID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("api key %s not found or already revoked", apiKeyID)
	}
	return nil
}
