// Package main provides routelinkctl, the operator CLI for the RouteLink store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/routelink-api/internal/app"
	"github.com/noah-isme/routelink-api/pkg/config"
	"github.com/noah-isme/routelink-api/pkg/logger"
)

var (
	// verbose is set by the --verbose flag.
	verbose bool
	// jsonOutput is set by the --json flag.
	jsonOutput bool

	// routelink is initialised by PersistentPreRunE for every command but version.
	routelink *app.App
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "routelinkctl",
	Short: "Operate the RouteLink travel scheduler",
	Long: `routelinkctl works directly against the RouteLink store configured by the
same environment variables as the API server (DB_DRIVER, DB_SQLITE_PATH, ...).`,
	SilenceUsage:       true,
	PersistentPreRunE:  openApp,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { closeApp(); return nil },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(holidaysCmd)
	rootCmd.AddCommand(tripsCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(pruneCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "routelinkctl v1.0.0")
	},
}

func openApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	// RunE failures skip PersistentPostRunE, so a previous run may still hold the store.
	closeApp()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l := logger.NewCLI(verbose)
	l.Debug("opening store", zap.String("driver", cfg.Database.Driver), zap.String("sqlite_path", cfg.Database.SQLitePath))

	routelink, err = app.New(ctx, cfg, l)
	if err != nil {
		return err
	}
	return nil
}

func closeApp() {
	if routelink != nil {
		routelink.Close()
		routelink = nil
	}
}
