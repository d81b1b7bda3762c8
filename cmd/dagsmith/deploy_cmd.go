package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/connectors/simgit"
	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/store"
	"github.com/fentz26/dagsmith/internal/tui"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [name]",
	Short: "Open the deployment cockpit",
	Long: `Walks a stored project through push, review, tag and deploy. Without a name
a project picker is shown first. Every step is recorded in the audit trail.

With --remote the project definitions are read from the daemon, while the
deployment record and its audit entries are still written to the local
database (--db). Use the daemon's /deployments API to track a release on the
daemon itself. Logs are written to cockpit.log next to the database while the
cockpit is open.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

var (
	deployMode   string
	deployRemote bool
)

func init() {
	deployCmd.Flags().StringVar(&deployMode, "mode", "create", "Release mode: create or update")
	deployCmd.Flags().BoolVar(&deployRemote, "remote", false, "Read projects from the daemon; deployments stay in the local database")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	mode, err := deploy.ParseMode(deployMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// Deployment records and the audit trail always go to the local store,
	// also with --remote.
	s, err := store.New(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	// The cockpit owns the terminal, so logs go to a file.
	cockpitLog, closer, err := fileLogger(cockpitLogPath(), appCfg.LogLevel, appCfg.LogFormat)
	if err != nil {
		return err
	}
	defer closer.Close()
	prev := slog.Default()
	slog.SetDefault(cockpitLog)
	defer slog.SetDefault(prev)

	var backend tui.Backend = s
	if deployRemote {
		client := tui.NewClient(apiAddr)
		if _, err := client.CheckHealth(ctx); err != nil {
			return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
		}
		backend = client
	}

	app := tui.New(ctx, backend, mode, tui.CockpitOptions{
		Player:  deploy.NewPlayer(simgit.New(), appCfg.Playback.MinDelay(), appCfg.Playback.MaxDelay()),
		Audit:   audit.NewPDRWriter(s),
		Tracker: s,
		Logger:  cockpitLog,
	})
	if len(args) == 1 {
		if err := app.Open(args[0]); err != nil {
			return err
		}
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func cockpitLogPath() string {
	return filepath.Join(filepath.Dir(appCfg.DBPath), "cockpit.log")
}
