package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guidance-desk/internal/config"
	"guidance-desk/internal/db"
	"guidance-desk/internal/llm"
	"guidance-desk/internal/logging"
	"guidance-desk/internal/prescription"
	"guidance-desk/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:          "guidance-desk",
		Short:        "Guidance office referral tracker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

func serve(parent context.Context, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
	}
	cfg := config.Load()
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conn, err := db.Open(cfg)
	if err != nil {
		logger.Error("database unavailable", zap.Error(err))
		return err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			logger.Error("auto migrate failed", zap.Error(err))
			return err
		}
		logger.Info("auto migrate complete")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	template, err := prescription.LoadPromptTemplate(cfg.PrescriptionPromptPath)
	if err != nil {
		return err
	}
	generator, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		// Staff pages still work; prescribe answers 502 until a key is set.
		logger.Warn("llm provider not configured", zap.String("provider", cfg.LLMProvider), zap.Error(err))
		generator = nil
	}
	service := prescription.NewService(prescription.Options{
		Log:       prescription.NewGormLog(conn),
		Generator: generator,
		Location:  cfg.Location(),
		Pricing: prescription.Pricing{
			InputPerMTok:  cfg.LLMInputCostPerMTok,
			OutputPerMTok: cfg.LLMOutputCostPerMTok,
		},
		Template: template,
		Logger:   logger.Named("prescription"),
	})

	srv := server.New(conn, cfg, server.Options{
		Prescriptions: service,
		Logger:        logger,
	})
	go srv.PurgeSessions(ctx, time.Hour)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("guidance-desk listening", zap.String("addr", httpServer.Addr), zap.String("timezone", cfg.Location().String()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
