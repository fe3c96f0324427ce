package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func feesCommand(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Inspect and govern the platform fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, "GET", "/v1/fees", nil, false)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-bps <bps>",
			Short: "Set the fee rate in basis points (admin)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				bps, err := strconv.ParseUint(args[0], 10, 16)
				if err != nil {
					return err
				}
				return c.call(cmd, "PUT", "/v1/fees/bps", map[string]any{"fee_bps": bps}, true)
			},
		},
		&cobra.Command{
			Use:   "set-recipient <account>",
			Short: "Set the fee recipient (admin)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, "PUT", "/v1/fees/recipient", map[string]any{"recipient": args[0]}, true)
			},
		},
	)
	return cmd
}
