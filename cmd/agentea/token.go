package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/agentea/config"
	"github.com/mohammad-safakhou/agentea/internal/runtime"
)

// tokenCMD prints a bearer token accepted by the /agents and /planner routes.
func tokenCMD() *cobra.Command {
	var subject string
	var ttl time.Duration
	var cfgPath string

	var token = &cobra.Command{
		Use:   "token",
		Short: "Sign an API token with server.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret is not set; the API is unauthenticated")
			}
			tok, err := runtime.SignJWT(subject, []byte(cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "sub", "operator", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	token.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return token
}
