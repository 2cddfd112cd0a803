package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dmelton/wrenchlog/internal/config"
	"github.com/dmelton/wrenchlog/internal/db"
	"github.com/dmelton/wrenchlog/internal/notify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		userID     uint
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a one-shot due-task sweep",
		Long:  "Evaluates maintenance schedules and sends due notifications once, then exits. Without --user, sweeps every rider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath, userID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "wrenchlog.yaml", "path to Wrenchlog config file")
	cmd.Flags().UintVar(&userID, "user", 0, "sweep a single user id")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string, userID uint) error {
	out := cmd.OutOrStdout()

	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	notifier := notify.NewNotifier(gormDB, cfg.Sweep.Window, dispatcher, log)
	ctx := context.Background()
	now := time.Now()

	if userID == 0 {
		notifier.SweepAll(ctx, now)
		fmt.Fprintln(out, "Sweep completed for all users.")
		return nil
	}

	res, err := notifier.Sweep(ctx, userID, now)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintf(out, "Sweep skipped for user %d (window gate or sweep in progress).\n", userID)
		return nil
	}
	fmt.Fprintf(out, "Sweep for user %d: %d due, %d notified.\n",
		userID, len(res.DueTasks), res.NotificationsTriggered)
	return nil
}
