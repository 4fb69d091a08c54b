package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gopherai-kb/internal/config"
	"gopherai-kb/internal/pkg/jwtutil"
)

var (
	tokenUserID   uint
	tokenUsername string
	tokenTTL      time.Duration
	tokenPending  bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token signed with the configured secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config failed: %w", err)
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute
		}
		token, err := jwtutil.GenerateToken(cfg.Auth.JWTSecret, ttl, tokenUserID, tokenUsername, !tokenPending)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().UintVar(&tokenUserID, "user-id", 1, "User id claim")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "operator", "Username claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default auth.jwt_expire_minute)")
	tokenCmd.Flags().BoolVar(&tokenPending, "unapproved", false, "Mint a token for a user awaiting approval")
}
