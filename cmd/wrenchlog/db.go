package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/dmelton/wrenchlog/internal/config"
	"github.com/dmelton/wrenchlog/internal/db"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Wrenchlog database",
		Long:  "Connects to the configured database and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "wrenchlog.yaml", "path to Wrenchlog config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected (%s)\n", cfg.DB.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nWrenchlog database initialized successfully.")
	return nil
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long:  "Brings an existing database up to the current schema without touching data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			gormDB, err := db.Connect(cfg.DB)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "wrenchlog.yaml", "path to Wrenchlog config file")
	return cmd
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all Wrenchlog tables and re-migrate",
		Long:  "Drops every Wrenchlog table, deleting all riders, motorcycles and history, then re-creates the empty schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "wrenchlog.yaml", "path to Wrenchlog config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if !skipConfirm && !confirmReset(cmd, cfg.DB.Driver) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	for _, model := range db.AllModels() {
		if err := gormDB.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("drop table for %T: %w", model, err)
		}
	}
	fmt.Fprintf(out, "Dropped %d tables\n", len(db.AllModels()))

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nWrenchlog database reset successfully.")
	return nil
}

func confirmReset(cmd *cobra.Command, driver string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in the %s database.\n", driver)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
