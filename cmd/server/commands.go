package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/allocator/internal/clients/yahoo"
	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/universe"
	"github.com/aristath/allocator/internal/server"
	"github.com/aristath/allocator/pkg/logger"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	candidates *universe.CandidateRepository
	optimizer  *optimization.OptimizerService
	registry   *prometheus.Registry
}

func newApp(candidatesFile string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if candidatesFile != "" {
		cfg.CandidatesFile = candidatesFile
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	candidates, err := universe.LoadCandidateRepository(cfg.CandidatesFile, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prices := yahoo.NewClient(yahoo.BreakerSettings{
		MaxConsecutiveFailures: cfg.Yahoo.BreakerFailures,
		OpenTimeout:            cfg.Yahoo.BreakerTimeout,
	}, log)

	service := optimization.NewOptimizerService(
		prices,
		optimization.NewActiveSetSolver(),
		cfg.Engine,
		optimization.NewServiceMetrics(registry),
		log,
	)

	return &app{
		cfg:        cfg,
		log:        log,
		candidates: candidates,
		optimizer:  service,
		registry:   registry,
	}, nil
}

func newRootCmd() *cobra.Command {
	var candidatesFile string

	root := &cobra.Command{
		Use:           "allocator",
		Short:         "Portfolio construction engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(candidatesFile)
		},
	}
	root.PersistentFlags().StringVar(&candidatesFile, "candidates", "", "predictions CSV (overrides CANDIDATES_FILE)")

	root.AddCommand(serveCmd(&candidatesFile))
	root.AddCommand(optimizeCmd(&candidatesFile))
	return root
}

func serveCmd(candidatesFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*candidatesFile)
		},
	}
}

func runServe(candidatesFile string) error {
	a, err := newApp(candidatesFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log := a.log

	srv := server.New(server.Config{
		Log:        log,
		Port:       a.cfg.Port,
		DevMode:    a.cfg.DevMode,
		Optimizer:  a.optimizer,
		Candidates: a.candidates,
		Gatherer:   a.registry,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Failed to start server")
		return err
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}

func optimizeCmd(candidatesFile *string) *cobra.Command {
	var (
		amount float64
		target float64
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one optimization and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*candidatesFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			result, err := a.optimizer.Optimize(ctx, a.candidates.GetAll(), amount, target/100)
			if err != nil {
				_ = enc.Encode(map[string]string{"error": optimization.UserMessage(err)})
				return err
			}
			return enc.Encode(result)
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 100000, "capital to allocate")
	cmd.Flags().Float64Var(&target, "target", 20, "target annual return in percent")
	return cmd
}
