package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var coefficientCmd = &cobra.Command{
	Use:   "coefficient <userId> <model>",
	Short: "Resolve model access and price coefficient for a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		decision := a.services.Access.ResolveForUser(cmd.Context(), args[0], args[1])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"userId":      args[0],
			"model":       args[1],
			"hasAccess":   decision.HasAccess,
			"coefficient": decision.Coefficient,
			"reason":      decision.Reason,
		})
	},
}

func init() {
	rootCmd.AddCommand(coefficientCmd)
}
