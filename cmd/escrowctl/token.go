package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"escrow/internal/domain"
	"escrow/internal/middleware"
)

func tokenCommand(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with the stablecoin ledger and caller tokens",
	}
	var ttl time.Duration
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Print a bearer token for --as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := middleware.SignJWT(c.secret, c.issuer, domain.Account(c.account), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	sign.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	cmd.AddCommand(
		sign,
		&cobra.Command{
			Use:   "balance <account>",
			Short: "Show balance and escrow allowance",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, "GET", "/v1/token/balances/"+url.PathEscape(args[0]), nil, false)
			},
		},
		&cobra.Command{
			Use:   "approve <amount>",
			Short: "Allow the escrow to pull up to amount from --as",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return err
				}
				return c.call(cmd, "POST", "/v1/token/approve", map[string]any{"amount": amount}, true)
			},
		},
		&cobra.Command{
			Use:   "mint <account> <amount>",
			Short: "Credit test funds (admin)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return err
				}
				return c.call(cmd, "POST", "/v1/token/mint", map[string]any{"to": args[0], "amount": amount}, true)
			},
		},
	)
	return cmd
}
