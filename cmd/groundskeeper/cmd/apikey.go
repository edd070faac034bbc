package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solatis/groundskeeper/internal/core/auth"
	"github.com/solatis/groundskeeper/internal/core/config"
	"github.com/solatis/groundskeeper/internal/types"
)

func newAPIKeyCmd(env *environment) *cobra.Command {
	apiKeyCmd := &cobra.Command{
		Use:   "apikey",
		Short: "Issue and revoke API keys",
	}

	var (
		name     string
		userID   int64
		secretID string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a key for a CRM user; the key is printed once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}
			secrets, err := config.HMACSecrets()
			if err != nil {
				return fmt.Errorf("failed to load HMAC secrets: %w", err)
			}
			id, secret, err := pickSecret(secrets, secretID)
			if err != nil {
				return err
			}

			cfg, err := env.config()
			if err != nil {
				return err
			}
			log, err := env.logger(cfg)
			if err != nil {
				return err
			}
			h, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer h.Close()
			store := h.store

			key, hash, err := auth.GenerateAPIKey(id, secret)
			if err != nil {
				return err
			}
			keyID, err := store.CreateAPIKey(cmd.Context(), name, hash, types.UserID(userID))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "api_key_id: %s\napi_key: %s\n", keyID, key)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "label for the key")
	create.Flags().Int64Var(&userID, "user", 0, "CRM user id the key acts as")
	create.Flags().StringVar(&secretID, "secret-id", "", "HMAC secret id to bind (default: the only configured secret)")

	revoke := &cobra.Command{
		Use:   "revoke <api_key_id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.config()
			if err != nil {
				return err
			}
			log, err := env.logger(cfg)
			if err != nil {
				return err
			}
			h, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer h.Close()
			store := h.store
			return store.RevokeAPIKey(cmd.Context(), args[0])
		},
	}

	apiKeyCmd.AddCommand(create, revoke)
	return apiKeyCmd
}

func pickSecret(secrets map[string][]byte, want string) (string, []byte, error) {
	if want != "" {
		secret, ok := secrets[want]
		if !ok {
			return "", nil, fmt.Errorf("secret id %s is not configured", want)
		}
		return want, secret, nil
	}
	switch len(secrets) {
	case 0:
		return "", nil, fmt.Errorf("no HMAC secrets configured (set GK_HMAC_SECRET environment variable)")
	case 1:
		for id, secret := range secrets {
			return id, secret, nil
		}
	}
	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "", nil, fmt.Errorf("several HMAC secrets configured, choose one with --secret-id (%v)", ids)
}
