package cmd

import (
	"fmt"
	"time"

	"tariff-service/internal/middleware"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an API token with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !middleware.HasRole(tokenRole, middleware.RoleAdmin, middleware.RoleManager, middleware.RoleViewer) {
			return fmt.Errorf("unknown role %q (want admin, manager or viewer)", tokenRole)
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}

		token, err := middleware.NewAuth([]byte(cfg.Auth.JWTSecret)).IssueToken(tokenSubject, tokenRole, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "principal the token identifies [REQUIRED]")
	tokenCmd.Flags().StringVar(&tokenRole, "role", middleware.RoleViewer, "admin, manager or viewer")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "lifetime, defaults to JWT_TTL")
	_ = tokenCmd.MarkFlagRequired("subject")
}
