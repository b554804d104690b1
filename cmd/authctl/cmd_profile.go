package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in user's profile",
	}

	var firstName, lastName, email string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			var req users.ProfileUpdate
			if cmd.Flags().Changed("first-name") {
				req.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				req.LastName = &lastName
			}
			if cmd.Flags().Changed("email") {
				req.Email = &email
			}

			u, err := a.auth.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		}),
	}
	update.Flags().StringVar(&firstName, "first-name", "", "first name")
	update.Flags().StringVar(&lastName, "last-name", "", "last name")
	update.Flags().StringVar(&email, "email", "", "email")

	cmd.AddCommand(update, newAvatarCmd(a))
	return cmd
}

func newAvatarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Upload or remove the profile picture",
	}

	upload := &cobra.Command{
		Use:   "upload <image-file>",
		Short: "Upload a PNG, JPEG, GIF or WebP image",
		Args:  cobra.ExactArgs(1),
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			url, err := a.auth.UploadAvatar(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Avatar: %s\n", url)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the profile picture",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if err := a.auth.DeleteAvatar(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Avatar removed")
			return nil
		}),
	}

	cmd.AddCommand(upload, deleteCmd)
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password",
	}

	var email string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Ask the backend to send a reset link",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			msg, err := a.auth.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		}),
	}
	reset.Flags().StringVar(&email, "email", "", "account email")
	_ = reset.MarkFlagRequired("email")

	var confirmation auth.PasswordResetConfirmation
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password with the uid and token from the reset link",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if confirmation.Password == "" {
				var err error
				if confirmation.Password, err = readLine(cmd, "New password: "); err != nil {
					return err
				}
			}
			msg, err := a.auth.ConfirmPasswordReset(cmd.Context(), confirmation)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		}),
	}
	confirm.Flags().StringVar(&confirmation.UID, "uid", "", "user id from the reset link")
	confirm.Flags().StringVar(&confirmation.Token, "token", "", "token from the reset link")
	confirm.Flags().StringVar(&confirmation.Password, "password", "", "new password (prompted when omitted)")
	_ = confirm.MarkFlagRequired("uid")
	_ = confirm.MarkFlagRequired("token")

	cmd.AddCommand(reset, confirm)
	return cmd
}
