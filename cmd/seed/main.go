package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"guidance-desk/internal/config"
	"guidance-desk/internal/db"
	"guidance-desk/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	conn   *gorm.DB
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var migrate bool
	e := &env{}
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Load reference data into the guidance database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
			}
			cfg := config.Load()
			logger, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			if migrate {
				if err := db.Migrate(conn); err != nil {
					return err
				}
			}
			e.conn, e.logger = conn, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVar(&migrate, "migrate", false, "run auto-migrations before seeding")
	root.AddCommand(newCategoriesCmd(e), newStudentsCmd(e), newAdminCmd(e))
	return root
}

func newCategoriesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "categories FILE.yaml",
		Short: "Create referral categories from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := db.LoadCategories(e.conn, args[0])
			if err != nil {
				return fmt.Errorf("load categories: %w", err)
			}
			e.logger.Info("categories loaded", zap.Int("created", created), zap.String("file", args[0]))
			return nil
		},
	}
}

func newStudentsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "students FILE.csv",
		Short: "Upsert the student roster from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := db.LoadStudentRoster(e.conn, args[0])
			if err != nil {
				return fmt.Errorf("load roster: %w", err)
			}
			e.logger.Info("roster loaded", zap.Int("students", count), zap.String("file", args[0]))
			return nil
		},
	}
}

func newAdminCmd(e *env) *cobra.Command {
	var username, email, fullName string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create the first admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("SEED_ADMIN_PASSWORD")
			if len(password) < 8 {
				return errors.New("SEED_ADMIN_PASSWORD must be set to at least 8 characters")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := db.User{
				Username:     strings.TrimSpace(username),
				Email:        strings.ToLower(strings.TrimSpace(email)),
				FullName:     strings.TrimSpace(fullName),
				PasswordHash: string(hash),
				Role:         db.RoleAdmin,
				IsActive:     true,
			}
			result := e.conn.Where(db.User{Username: user.Username}).FirstOrCreate(&user)
			if result.Error != nil {
				return fmt.Errorf("create admin: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				e.logger.Info("admin already exists", zap.String("user", user.Username))
				return nil
			}
			e.logger.Info("admin created", zap.String("user", user.Username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "login name")
	cmd.Flags().StringVar(&email, "email", "admin@school.local", "email address")
	cmd.Flags().StringVar(&fullName, "name", "Guidance Administrator", "display name")
	return cmd
}
