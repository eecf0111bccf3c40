/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the timesheet engine. Starts the HTTP server,
  ingests files from the shell, and prints mod-period reports.

COMMANDS:
  serve     Run the HTTP API (and the inbox poller when inbox.dir is set)
  ingest    Parse and record timesheet files
  report    Print the mod-period report for a site as JSON
  version   Print version information

CONFIGURATION:
  Read in this order, later wins:
  1. Defaults below
  2. config.yaml in ./ or $HOME/.config/timesheet-engine/ (or --config)
  3. .env in the working directory
  4. TSE_* environment variables (TSE_DB_PATH, TSE_HTTP_PORT, ...)
  5. Command-line flags

  Keys:
    db.path              SQLite database path (":memory:" for in-memory)
    http.port            HTTP server port
    http.allowed_origins CORS origins
    http.upload_rate     Uploads per second per client
    http.upload_burst    Upload burst per client
    inbox.dir            Directory polled for timesheet files (empty = off)
    inbox.interval       Poll interval
    inbox.team_id        Team the inbox files belong to
    inbox.company_id     Company the inbox files are charged to
    logging.level        debug, info, warn, error
    logging.format       console, json

EXAMPLES:
  server serve --db ./data/timesheets.db --port 3000
  server ingest --team ops --company acme exports/*.xlsx
  server report --team ops --site north --company acme --as-of 2025-01-15

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Inbox poller
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Timesheet ingestion and mod-period reporting",
		Long: `Ingests vendor timesheet exports (xlsx, xls, csv, html), records the
entries, and reports them in Saturday-Friday mod weeks grouped by month.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db", "timesheets.db", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	setDefaults()

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(versionCmd())
}

func setDefaults() {
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	viper.SetDefault("http.upload_rate", 1.0)
	viper.SetDefault("http.upload_burst", 5)
	viper.SetDefault("inbox.dir", "")
	viper.SetDefault("inbox.interval", time.Minute)
	viper.SetDefault("inbox.team_id", "")
	viper.SetDefault("inbox.company_id", "")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("received interrupt signal, shutting down")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/timesheet-engine")
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging() error {
	var level slog.Level
	switch viper.GetString("logging.level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", viper.GetString("logging.level"))
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch viper.GetString("logging.format") {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", viper.GetString("logging.format"))
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "timesheet-engine %s\n", version)
		},
	}
}
