package main

import (
	"fmt"

	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/spf13/cobra"
)

func newTenantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tenants",
		Aliases: []string{"tenant"},
		Short:   "List, select and manage tenants",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the tenants visible to the signed-in user",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			all, err := a.tenants.List(cmd.Context())
			if err != nil {
				return err
			}
			currentID := ""
			if current, ok := a.tenants.Current(); ok {
				currentID = current.ID
			}
			printTenants(cmd.OutOrStdout(), all, currentID)
			return nil
		}),
	}

	switchCmd := &cobra.Command{
		Use:   "switch <tenant-id>",
		Short: "Select the tenant sent with every request",
		Args:  cobra.ExactArgs(1),
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			t, err := a.tenants.Switch(cmd.Context(), args[0])
			if t != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Current tenant: %s (%s)\n", t.Name, t.ID)
			}
			return err
		}),
	}

	var createReq tenants.CreateRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			t, err := a.tenants.Create(cmd.Context(), createReq)
			if err != nil {
				return err
			}
			printTenant(cmd.OutOrStdout(), t)
			return nil
		}),
	}
	create.Flags().StringVar(&createReq.Name, "name", "", "tenant name")
	create.Flags().StringVar(&createReq.Domain, "domain", "", "tenant domain")
	_ = create.MarkFlagRequired("name")

	var name, domain string
	var active bool
	update := &cobra.Command{
		Use:   "update <tenant-id>",
		Short: "Change tenant fields; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			var req tenants.UpdateRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("domain") {
				req.Domain = &domain
			}
			if cmd.Flags().Changed("active") {
				req.IsActive = &active
			}
			t, err := a.tenants.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			printTenant(cmd.OutOrStdout(), t)
			return nil
		}),
	}
	update.Flags().StringVar(&name, "name", "", "tenant name")
	update.Flags().StringVar(&domain, "domain", "", "tenant domain")
	update.Flags().BoolVar(&active, "active", true, "whether the tenant is active")

	deleteCmd := &cobra.Command{
		Use:   "delete <tenant-id>",
		Short: "Delete a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: connected(a, func(cmd *cobra.Command, args []string) error {
			if err := a.tenants.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tenant %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, switchCmd, create, update, deleteCmd)
	return cmd
}
