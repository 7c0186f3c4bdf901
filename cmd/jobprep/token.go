package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobprep/internal/server"
)

var (
	tokenConfigPath string
	tokenSubject    string
	tokenTTL        time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long:  `Issues a signed JWT for the configured jwt_secret. Pass it as "Authorization: Bearer <token>" to the API.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenConfigPath, "config", "", "Path to config.json file")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", server.DefaultTokenTTL, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(tokenConfigPath)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable or 'jwt_secret' config is required")
	}

	token, err := server.NewJWTService(cfg.JWTSecret, tokenTTL).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
