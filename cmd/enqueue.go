package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"roleadmin/internal/config"
	"roleadmin/internal/tasks"
)

var enqueueCmd = &cobra.Command{
	Use:       "enqueue <refill|archive>",
	Short:     "Enqueue a ledger task now",
	Long:      `Enqueue an auto refill pass, or an archive of the previous day (or --since/--until), for the worker to pick up.`,
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"refill", "archive"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		client := tasks.NewTaskClient(cfg.Redis)
		defer client.Close()

		switch args[0] {
		case "refill":
			_, err = client.EnqueueRefill(cmd.Context(), time.Now())
		case "archive":
			since, until, perr := archiveWindow(cmd)
			if perr != nil {
				return perr
			}
			_, err = client.EnqueueArchive(cmd.Context(), since, until)
		}
		return err
	},
}

func init() {
	enqueueCmd.Flags().String("since", "", "archive window start (RFC3339)")
	enqueueCmd.Flags().String("until", "", "archive window end (RFC3339)")
	rootCmd.AddCommand(enqueueCmd)
}

// archiveWindow reads --since/--until. Both empty leaves the window to the worker.
func archiveWindow(cmd *cobra.Command) (time.Time, time.Time, error) {
	rawSince, _ := cmd.Flags().GetString("since")
	rawUntil, _ := cmd.Flags().GetString("until")
	if rawSince == "" && rawUntil == "" {
		return time.Time{}, time.Time{}, nil
	}
	since, err := time.Parse(time.RFC3339, rawSince)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--since: %w", err)
	}
	until, err := time.Parse(time.RFC3339, rawUntil)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--until: %w", err)
	}
	if !until.After(since) {
		return time.Time{}, time.Time{}, fmt.Errorf("--until must be after --since")
	}
	return since, until, nil
}
