package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 8080, "HTTP server port")
	cmd.Flags().String("inbox", "", "directory polled for timesheet files")
	_ = viper.BindPFlag("http.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("inbox.dir", cmd.Flags().Lookup("inbox"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	store, err := sqlite.New(viper.GetString("db.path"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: viper.GetStringSlice("http.allowed_origins"),
		UploadRate:     viper.GetFloat64("http.upload_rate"),
		UploadBurst:    viper.GetInt("http.upload_burst"),
	})

	if dir := viper.GetString("inbox.dir"); dir != "" {
		inbox := api.NewInboxScheduler(handler.Ingest, dir,
			generic.TeamID(viper.GetString("inbox.team_id")),
			generic.CompanyID(viper.GetString("inbox.company_id")),
			logger)
		inbox.CheckInterval = viper.GetDuration("inbox.interval")
		inbox.Start()
		defer inbox.Stop()
	}

	port := viper.GetInt("http.port")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", viper.GetString("db.path"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
