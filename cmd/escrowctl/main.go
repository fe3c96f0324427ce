// Command escrowctl is a command line client for the escrow API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const programName = "escrowctl"

func main() {
	_ = godotenv.Load()
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	c := &client{}
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Manage escrow campaigns over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.baseURL, "server", envOr("ESCROW_SERVER", "http://localhost:8080"), "escrow API base URL")
	flags.StringVar(&c.account, "as", os.Getenv("ESCROW_ACCOUNT_AS"), "account to act as for mutating calls")
	flags.StringVar(&c.secret, "jwt-secret", os.Getenv("JWT_SECRET"), "HS256 secret used to sign the caller token")
	flags.StringVar(&c.issuer, "jwt-issuer", envOr("JWT_ISSUER", "escrow"), "token issuer")
	flags.StringVar(&c.token, "token", os.Getenv("ESCROW_TOKEN"), "pre-signed bearer token (overrides --as)")

	rootCmd.AddCommand(
		healthCommand(c),
		campaignsCommand(c),
		feesCommand(c),
		tokenCommand(c),
	)
	return rootCmd
}

func healthCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, "GET", "/v1/healthz", nil, false)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
