package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roleadmin/internal/models"
	"roleadmin/internal/services"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every role with its capabilities and enabled models",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		roles, err := a.services.Roles.ListRoles(cmd.Context())
		if err != nil {
			return err
		}
		return printRoles(roles)
	},
}

func init() {
	rolesCmd.AddCommand(rolesListCmd)
	rootCmd.AddCommand(rolesCmd)
}

func printRoles(roles []models.Role) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCAPABILITIES\tMODELS")
	for i := range roles {
		role := &roles[i]
		var granted []string
		for _, capability := range role.Permissions.Capabilities() {
			var actions []string
			for action, ok := range role.Permissions[capability] {
				if ok {
					actions = append(actions, action)
				}
			}
			if len(actions) == 0 {
				continue
			}
			sort.Strings(actions)
			granted = append(granted, capability+"("+strings.Join(actions, "|")+")")
		}
		var available []string
		for _, m := range services.AvailableModels(role) {
			available = append(available, fmt.Sprintf("%s(x%.2f)", m.Name, m.Coefficient))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", role.Name, orDash(granted), orDash(available))
	}
	return w.Flush()
}

func orDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
