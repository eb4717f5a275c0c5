package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "studyhubctl",
	Short: "StudyHub maintenance tool",
	Long: `studyhubctl runs maintenance tasks against the StudyHub database and
file storage. It reads the same environment (and .env file) as the API server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("studyhubctl %s (%s)\n", Version, Commit))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(checkUploadsCmd)
	rootCmd.AddCommand(purgeTokensCmd)
	rootCmd.AddCommand(runJobCmd)
}
