package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"swipely/internal/api"
	"swipely/internal/queueaccess"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect users and manage subscriptions",
	}
	usersCmd.AddCommand(newUsersListCommand(ctx))
	usersCmd.AddCommand(newUsersGrantCommand(ctx))
	usersCmd.AddCommand(newUsersResetCommand(ctx))
	return usersCmd
}

func newUsersListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				users, err := access.Users(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, map[string][]api.UserSummary{"items": users})
				}
				out := cmd.OutOrStdout()
				if len(users) == 0 {
					fmt.Fprintln(out, "No users")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for _, user := range users {
					rows = append(rows, []string{
						strconv.FormatInt(user.TelegramID, 10),
						displayName(user),
						user.Tier,
						user.ProUntil,
						user.CreatedAt,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Telegram ID", "Name", "Tier", "Pro Until", "Joined"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum users to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newUsersGrantCommand(ctx *commandContext) *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "grant <telegram-id> <days>",
		Short: "Set a user's tier (0 days keeps pro without expiry)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			telegramID, err := parseTelegramID(args[0])
			if err != nil {
				return err
			}
			days, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil || days < 0 {
				return fmt.Errorf("invalid day count %q", args[1])
			}
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				user, err := access.SetTier(cmd.Context(), telegramID, tier, days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if user.ProUntil != "" {
					fmt.Fprintf(out, "User %d is now %s until %s\n", user.TelegramID, user.Tier, user.ProUntil)
					return nil
				}
				fmt.Fprintf(out, "User %d is now %s\n", user.TelegramID, user.Tier)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "pro", "Tier to assign (free or pro)")
	return cmd
}

func newUsersResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <telegram-id>",
		Short: "Clear today's usage counters for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			telegramID, err := parseTelegramID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				if err := access.ResetUsage(cmd.Context(), telegramID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Usage reset for user %d\n", telegramID)
				return nil
			})
		},
	}
}

func parseTelegramID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid telegram id %q", value)
	}
	return id, nil
}

func displayName(user api.UserSummary) string {
	switch {
	case user.Username != "":
		return "@" + user.Username
	case user.FirstName != "":
		return user.FirstName
	default:
		return "-"
	}
}
