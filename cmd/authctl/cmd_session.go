package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readLine(cmd, "Password: "); err != nil {
					return err
				}
			}

			result, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (session valid for %s)\n",
				result.User.DisplayName(), time.Duration(result.Credential.ExpiresIn)*time.Second)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session locally and on the backend",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			a.auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readLine(cmd, "Password: "); err != nil {
					return err
				}
			}
			msg, err := a.auth.Register(cmd.Context(), users.Registration{
				Email:     email,
				Password:  password,
				FirstName: utils.NonEmptyPtr(firstName),
				LastName:  utils.NonEmptyPtr(lastName),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// newStatusCmd reports the session from local state only.
func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session state",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State: %s\n", renderState(out, a.session.State()))

			claims, err := a.session.Claims()
			switch {
			case errors.Is(err, autherrors.ErrNotAuthenticated):
				return nil
			case err != nil:
				fmt.Fprintf(out, "Token: unreadable (%s)\n", err)
			default:
				fmt.Fprintf(out, "Subject: %s\n", claims.Identity())
				if claims.Email != "" {
					fmt.Fprintf(out, "Email: %s\n", claims.Email)
				}
				fmt.Fprintf(out, "Access token expires %s\n", humanDuration(time.Until(claims.ExpiresAt)))
			}

			if u := a.auth.CurrentUser(); u != nil {
				fmt.Fprintf(out, "User: %s <%s>\n", u.DisplayName(), u.Email)
			}
			if t, ok := a.tenants.Current(); ok {
				fmt.Fprintf(out, "Tenant: %s (%s)\n", t.Name, t.ID)
			}
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch the signed-in user's profile",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			u, err := a.auth.FetchUserProfile(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		}),
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			credential, err := a.auth.RefreshToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Access token refreshed, expires in %s\n", time.Duration(credential.ExpiresIn)*time.Second)
			return nil
		}),
	}
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
