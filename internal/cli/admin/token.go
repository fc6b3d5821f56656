package admin

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/docpipe/internal/auth"
	"github.com/cloo-solutions/docpipe/internal/config"
	"github.com/spf13/cobra"
)

// TokenCmd returns the token command
func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user",
		Long: `Issue a signed API token for a user.

The token is signed with DOCPIPE_JWT_SECRET and is shown only once. Tenant
access still depends on the user's memberships.`,
		RunE: runToken,
	}
	cmd.Flags().String("user", "", "User ID the token is issued to (required)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasJWT() {
		return errors.New("DOCPIPE_JWT_SECRET is not set")
	}

	token, err := auth.GenerateToken(userID, []byte(cfg.JWTSecret), ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
