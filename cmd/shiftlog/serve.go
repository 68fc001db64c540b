package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/api"
	"github.com/pinetree-ops/shiftlog/internal/biz"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
	"github.com/pinetree-ops/shiftlog/internal/biz/usecase"
	"github.com/pinetree-ops/shiftlog/internal/data"
	"github.com/pinetree-ops/shiftlog/internal/service"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat webhooks and the export API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServer(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		// Initialize repository layer
		repos, err := data.NewRepositories(data.Options{
			DBPath:          cfg.Storage.DBPath,
			ViberToken:      cfg.Viber.BotToken,
			ViberSenderName: cfg.Viber.SenderName,
			ViberAPIURL:     cfg.Viber.APIURL,
			SlackBotToken:   cfg.Slack.BotToken,
		})
		if err != nil {
			return fmt.Errorf("open repositories: %w", err)
		}
		defer repos.Close()

		// Initialize usecase layer
		ucs := &biz.Usecases{
			Checkin: usecase.NewCheckinUsecase(
				repos.Event,
				repos.Pending,
				[]repo.MessengerRepo{repos.Viber, repos.Slack},
				cfg.Replies,
				cfg.PendingStatusTTL,
			),
			Export: usecase.NewExportUsecase(repos.Event, loc),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Initialize service layer
		sweeper := service.NewPendingSweeper(repos.Pending, service.DefaultSweepInterval)
		sweeper.Start(ctx)
		defer sweeper.Stop()

		apiServer := api.NewServer(api.Options{
			Port:               cfg.Server.Port,
			AdminAPIKey:        cfg.Server.AdminAPIKey,
			ViberToken:         cfg.Viber.BotToken,
			SlackSigningSecret: cfg.Slack.SigningSecret,
		}, ucs.Checkin, ucs.Export, repos.Slack)

		errCh := make(chan error, 1)
		go func() {
			errCh <- apiServer.Start()
		}()

		slog.Info("shiftlog started",
			"port", cfg.Server.Port,
			"timezone", cfg.Timezone,
			"db", cfg.Storage.DBPath,
			"viber", cfg.Viber.BotToken != "",
			"slack", cfg.Slack.SigningSecret != "",
		)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return apiServer.Stop(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
