package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sahilchouksey/studyhub-api/app"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/services/cron"
	"github.com/spf13/cobra"
)

var checkUploadsCmd = &cobra.Command{
	Use:   "check-uploads",
	Short: "Find documents whose file is missing from storage",
	Long: `check-uploads verifies that every document's file exists in storage and
deletes the rows whose file is gone. With --remove-stray, files under
documents/ that no row references are deleted as well.

Uploads that are in flight while the scan runs can be reported as stray.
Run --remove-stray while the API is idle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		removeStray, _ := cmd.Flags().GetBool("remove-stray")
		asJSON, _ := cmd.Flags().GetBool("json")

		rt, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		maintenance := services.NewMaintenanceService(rt.Store.GetDB(), rt.Files)
		report, err := maintenance.ScanOrphans(cmd.Context(), services.ScanOptions{
			DryRun:      dryRun,
			RemoveStray: removeStray,
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("Checked %d documents: %d found, %d missing\n", report.Checked, report.Found(), len(report.Missing))
		for _, m := range report.Missing {
			fmt.Printf("  missing  #%d %q (%s)\n", m.ID, m.Title, m.Filename)
		}
		for _, f := range report.StrayFiles {
			fmt.Printf("  stray    %s\n", f)
		}
		if dryRun {
			fmt.Println("Dry run: nothing was removed")
			return nil
		}
		fmt.Printf("Removed %d records and %d files\n", report.RemovedRecords, report.RemovedFiles)
		return nil
	},
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete expired blacklist entries and old job logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cron.JobPurgeTokens)
	},
}

var runJobCmd = &cobra.Command{
	Use:       "run-job <name>",
	Short:     "Run a scheduled job once",
	ValidArgs: []string{cron.JobOrphanScan, cron.JobPurgeTokens, cron.JobCleanupNotifications},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(args[0])
	},
}

// runJob executes a job the way the scheduler would, including its log row
func runJob(name string) error {
	rt, err := app.Bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	maintenance := services.NewMaintenanceService(rt.Store.GetDB(), rt.Files)
	entry := cron.NewCronManager(rt.Store.GetDB(), maintenance, rt.Redis).Run(name)
	if entry == nil {
		return fmt.Errorf("job %s did not run (unknown or locked by another instance)", name)
	}
	if entry.Status == model.CronStatusFailed {
		return fmt.Errorf("job %s failed: %s", name, entry.ErrorMsg)
	}

	fmt.Printf("✓ %s: %s (%dms)\n", name, entry.Message, entry.Duration)
	return nil
}

func init() {
	checkUploadsCmd.Flags().Bool("dry-run", false, "report without deleting anything")
	checkUploadsCmd.Flags().Bool("remove-stray", false, "also delete files no document references")
	checkUploadsCmd.Flags().Bool("json", false, "print the report as JSON")
}
