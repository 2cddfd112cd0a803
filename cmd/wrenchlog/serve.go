package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmelton/wrenchlog/internal/config"
	"github.com/dmelton/wrenchlog/internal/db"
	"github.com/dmelton/wrenchlog/internal/garage"
	"github.com/dmelton/wrenchlog/internal/notify"
	"github.com/dmelton/wrenchlog/internal/notify/discord"
	"github.com/dmelton/wrenchlog/internal/notify/slack"
	"github.com/dmelton/wrenchlog/internal/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Wrenchlog API server",
		Long:  "Starts the HTTP API and the background due-task sweep. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "wrenchlog.yaml", "path to Wrenchlog config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	// Secrets can live in a local .env; absence is not an error.
	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is required (or set WRENCHLOG_JWT_SECRET)")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database ready (%s)\n", cfg.DB.Driver)

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	svc := garage.New(gormDB, garage.Options{
		DedupWindow: cfg.Garage.MileageDedupWindow,
		Events:      dispatcher,
	})
	notifier := notify.NewNotifier(gormDB, cfg.Sweep.Window, dispatcher, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := notifier.Start(ctx, cfg.Sweep.Cron); err != nil {
		return err
	}
	fmt.Fprintf(out, "Due-task sweep scheduled (%s)\n", cfg.Sweep.Cron)

	return server.Start(ctx, server.StartOpts{
		DB:        gormDB,
		Garage:    svc,
		Notifier:  notifier,
		JWTSecret: cfg.Server.JWTSecret,
		Port:      cfg.Server.Port,
		Log:       log,
		Out:       out,
	})
}

// buildDispatcher assembles the configured notification sinks. With none
// configured the dispatcher is still usable, it just delivers to nobody.
func buildDispatcher(cfg *config.Config, log *logrus.Logger) (*notify.Dispatcher, error) {
	var adapters []notify.Adapter

	if cfg.Notifiers.Slack.BotToken != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notifiers.Slack.BotToken,
			ChannelID: cfg.Notifiers.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
		log.Info("slack notifications enabled")
	}
	if cfg.Notifiers.Discord.BotToken != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notifiers.Discord.BotToken,
			ChannelID: cfg.Notifiers.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
		log.Info("discord notifications enabled")
	}

	return notify.NewDispatcher(log, adapters...), nil
}
