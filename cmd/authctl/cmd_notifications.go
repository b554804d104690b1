package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "Read and acknowledge notifications",
	}

	var unreadOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			inbox, err := a.inbox.List(cmd.Context())
			if err != nil {
				return err
			}
			printNotifications(cmd.OutOrStdout(), inbox, unreadOnly)
			return nil
		}),
	}
	list.Flags().BoolVar(&unreadOnly, "unread", false, "only show unread notifications")

	read := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if err := a.inbox.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s read\n", args[0])
			return nil
		}),
	}

	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if err := a.inbox.MarkAllRead(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked read")
			return nil
		}),
	}

	cmd.AddCommand(list, read, readAll)
	return cmd
}
