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

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/connectors/simgit"
	"github.com/fentz26/dagsmith/internal/controlplane"
	"github.com/fentz26/dagsmith/internal/store"
	"github.com/spf13/cobra"
)

var listenAddr string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the dagsmith daemon",
	Long:  `Starts the daemon which stores projects and serves the HTTP API for compilation, schedules and deployments.`,
	RunE:  runDaemon,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the daemon health",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := CheckHealth()
		if health != nil {
			fmt.Printf("OK:      %t\n", health.OK)
			fmt.Printf("DB:      %s\n", health.DB)
			fmt.Printf("Version: %s\n", health.Version)
			fmt.Printf("Time:    %s\n", health.Time)
		}
		return err
	},
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides listen)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	addr := appCfg.Listen
	if listenAddr != "" {
		addr = listenAddr
	}
	logger.Info("starting dagsmith daemon", "db", appCfg.DBPath, "version", controlplane.Version)

	// Initialize store
	s, err := store.New(appCfg.DBPath)
	if err != nil {
		return err
	}

	// Create service and server
	pdr := audit.NewPDRWriter(s)
	service := controlplane.NewService(s, pdr, simgit.New(), controlplane.Options{
		PoolCapacity: appCfg.PoolCapacity,
		MinDelay:     appCfg.Playback.MinDelay(),
		MaxDelay:     appCfg.Playback.MaxDelay(),
		Logger:       logger,
	})
	server := controlplane.NewServer(service, s, addr)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := s.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
