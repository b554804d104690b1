package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{opts: &globalOptions{}}

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Sign in to the backend and manage the local session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.apiURL, "api-url", "", "backend base URL (overrides AUTH_API_URL)")
	flags.StringVar(&a.opts.dataDir, "data", "", "folder for the durable token store (overrides AUTH_DATA_FOLDER)")
	flags.BoolVar(&a.opts.ephemeral, "ephemeral", false, "keep the session in memory only")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newRegisterCmd(a),
		newStatusCmd(a),
		newWhoamiCmd(a),
		newRefreshCmd(a),
		newProfileCmd(a),
		newPasswordCmd(a),
		newTenantsCmd(a),
		newNotificationsCmd(a),
		newDevServerCmd(a),
		newVersionCmd(),
	)
	return root
}

// connected wraps a RunE so it runs with the client stack in place. The stack
// is closed by the root's post-run hook, or here when the command fails.
func connected(a *app, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.connect(cmd.Context()); err != nil {
			_ = a.close()
			return err
		}
		if err := run(cmd, args); err != nil {
			_ = a.close()
			return err
		}
		return nil
	}
}
