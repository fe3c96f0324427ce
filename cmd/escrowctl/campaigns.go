package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func campaignsCommand(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "campaigns",
		Aliases: []string{"campaign", "c"},
		Short:   "Create, fund and settle campaigns",
	}
	cmd.AddCommand(
		campaignsListCommand(c),
		campaignsGetCommand(c),
		campaignsCreateCommand(c),
		campaignsDonorsCommand(c),
		campaignsDonationCommand(c),
		campaignsDonateCommand(c),
		campaignsSettleCommand(c, "finalize", "Pay the pool to the beneficiary minus the platform fee"),
		campaignsSettleCommand(c, "cancel", "Refund every donor of a failed campaign"),
		campaignsEventsCommand(c),
	)
	return cmd
}

func campaignsListCommand(c *client) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaign ids and a page of campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("offset", strconv.Itoa(offset))
			q.Set("limit", strconv.Itoa(limit))
			return c.call(cmd, "GET", "/v1/campaigns?"+q.Encode(), nil, false)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	return cmd
}

func campaignsGetCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a campaign and its settlement eligibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.call(cmd, "GET", fmt.Sprintf("/v1/campaigns/%d", id), nil, false)
		},
	}
}

func campaignsCreateCommand(c *client) *cobra.Command {
	var (
		beneficiary string
		goal        uint64
		duration    int64
		title       string
		description string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new campaign",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if beneficiary == "" {
				beneficiary = c.account
			}
			return c.call(cmd, "POST", "/v1/campaigns", map[string]any{
				"beneficiary":      beneficiary,
				"goal_amount":      goal,
				"duration_seconds": duration,
				"title":            title,
				"description":      description,
			}, true)
		},
	}
	cmd.Flags().StringVar(&beneficiary, "beneficiary", "", "beneficiary account (defaults to --as)")
	cmd.Flags().Uint64Var(&goal, "goal", 0, "goal amount in the smallest currency unit")
	cmd.Flags().Int64Var(&duration, "duration", 7*24*3600, "duration in seconds")
	cmd.Flags().StringVar(&title, "title", "", "campaign title")
	cmd.Flags().StringVar(&description, "description", "", "campaign description")
	return cmd
}

func campaignsDonorsCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "donors <id>",
		Short: "List donors in first-donation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.call(cmd, "GET", fmt.Sprintf("/v1/campaigns/%d/donors", id), nil, false)
		},
	}
}

func campaignsDonationCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "donation <id> <donor>",
		Short: "Show one donor's cumulative contribution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.call(cmd, "GET", fmt.Sprintf("/v1/campaigns/%d/donations/%s", id, url.PathEscape(args[1])), nil, false)
		},
	}
}

func campaignsDonateCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "donate <id> <amount>",
		Short: "Donate from the caller's approved allowance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			return c.call(cmd, "POST", fmt.Sprintf("/v1/campaigns/%d/donations", id), map[string]any{"amount": amount}, true)
		},
	}
}

func campaignsSettleCommand(c *client, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.call(cmd, "POST", fmt.Sprintf("/v1/campaigns/%d/%s", id, action), nil, true)
		},
	}
}

func campaignsEventsCommand(c *client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <id>",
		Short: "Show the campaign audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.call(cmd, "GET", fmt.Sprintf("/v1/campaigns/%d/events?limit=%d", id, limit), nil, false)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum events")
	return cmd
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid campaign id %q", raw)
	}
	return id, nil
}
