package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-simulator/internal/api"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the control API",
	Long: `Signs a token with security.jwt.secret. The secret is usually
supplied through SIMULATOR_JWT_SECRET.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set; the control API is unauthenticated")
	}
	if tokenTTL <= 0 {
		return errors.New("--ttl must be positive")
	}

	token, err := api.IssueToken(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
