package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/core"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and run scheduled comparisons",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *core.Service) error {
			tasks, err := svc.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), tasks)
			return nil
		})
	},
}

var tasksRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every due task once",
	Long: `Run every active task whose next run has passed, then exit. Suited
to cron when the server's scheduler is disabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *core.Service) error {
			sum, err := svc.RunDueTasks(cmd.Context(), time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "due %d, completed %d, failed %d, skipped %d\n",
				sum.Due, sum.Completed, sum.Failed, sum.Skipped)
			return err
		})
	},
}

func init() {
	tasksCmd.AddCommand(tasksListCmd, tasksRunCmd)
}
