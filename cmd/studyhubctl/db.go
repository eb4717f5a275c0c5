package main

import (
	"fmt"

	"github.com/sahilchouksey/studyhub-api/app"
	"github.com/sahilchouksey/studyhub-api/database"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.SetupAndRunServer()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.Store.Init(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := rt.Store.HealthCheck(); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}

		fmt.Printf("✓ Schema migrated (%s)\n", rt.Store.Driver())
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the admin user and optional YAML fixtures",
	Long: `Seed creates the admin account from ADMIN_EMAIL and ADMIN_PASSWORD and then
loads categories, users and documents from a fixture file. Rows that already
exist are skipped, so seeding twice is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var fixtures *database.Fixtures
		if file != "" {
			f, err := database.LoadFixturesFile(file)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", file, err)
			}
			fixtures = f
		}

		rt, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.Store.Init(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		seeder := database.NewSeeder(rt.Store.GetDB())
		if err := seeder.SeedAll(fixtures, rt.Env.ADMIN_EMAIL, rt.Env.ADMIN_PASSWORD); err != nil {
			return err
		}

		fmt.Println("✓ Seeding completed")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "YAML fixture file")
}
