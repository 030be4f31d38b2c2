package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"guidance-desk/internal/config"
	"guidance-desk/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const migrationsDir = "db/migrations"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or create SQL migrations",
		SilenceUsage: true,
	}
	root.AddCommand(newUpCmd(), newDownCmd(), newVersionCmd(), newCreateCmd())
	return root
}

func newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := open()
			if err != nil {
				return err
			}
			defer closeMigrate(m, logger)
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("database migration failed: %w", err)
			}
			logger.Info("database migrations applied")
			return nil
		},
	}
}

func newDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.New("--steps must be positive")
			}
			m, logger, err := open()
			if err != nil {
				return err
			}
			defer closeMigrate(m, logger)
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("rollback failed: %w", err)
			}
			logger.Info("migrations rolled back", zap.Int("steps", steps))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := open()
			if err != nil {
				return err
			}
			defer closeMigrate(m, logger)
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if strings.ContainsAny(name, " /") {
				return errors.New("migration name must not contain spaces or slashes")
			}
			base := time.Now().UTC().Format("20060102150405") + "_" + name
			upPath := filepath.Join(migrationsDir, base+".up.sql")
			downPath := filepath.Join(migrationsDir, base+".down.sql")
			if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
				return fmt.Errorf("create migrations dir: %w", err)
			}
			if err := writeNew(upPath, "-- up migration\n"); err != nil {
				return err
			}
			if err := writeNew(downPath, "-- down migration\n"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s and %s\n", upPath, downPath)
			return nil
		},
	}
}

func open() (*migrate.Migrate, *zap.Logger, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" || strings.HasPrefix(cfg.DatabaseURL, "sqlite:") {
		return nil, nil, errors.New("DATABASE_URL must point at Postgres; sqlite databases use AUTO_MIGRATE")
	}
	m, err := migrate.New("file://"+migrationsDir, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("migration setup failed: %w", err)
	}
	return m, logger, nil
}

func closeMigrate(m *migrate.Migrate, logger *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		logger.Warn("close migrate", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
	}
	_ = logger.Sync()
}

func writeNew(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
