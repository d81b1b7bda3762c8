package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/compiler"
	"github.com/fentz26/dagsmith/internal/projectfile"
	"github.com/fentz26/dagsmith/internal/scheduler"
	"github.com/fentz26/dagsmith/internal/store"
	"github.com/fentz26/dagsmith/internal/workspace"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build <file>...",
	Short: "Compile many project files into workspace trees in parallel",
	Long: `Build compiles every project file and writes its tree under --out (default:
workspace_root from the settings). Files are processed concurrently within the
build.global_max and build.by_kind limits; the kind of a job is its file format.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

var (
	buildOut     string
	buildWorkers int
	buildNoAudit bool
)

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildOut, "out", "", "Root directory for the generated trees")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "Override build.global_max")
	buildCmd.Flags().BoolVar(&buildNoAudit, "no-audit", false, "Do not record builds in the audit trail")
}

// buildJob reads the project file up front so the audit entry of the job
// carries the project name, even when validation later fails.
func buildJob(path, root string) scheduler.Job {
	format, _ := projectfile.FormatOf(path)
	job := scheduler.Job{Name: path, Kind: string(format)}

	cfg, err := projectfile.Load(path)
	if err != nil {
		job.Run = func(context.Context) (string, error) { return "", err }
		return job
	}
	job.Project = cfg.Name
	job.Run = func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := cfg.Validate(); err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		warnCapacity(cfg)
		return workspace.Write(root, cfg, compiler.Compile(cfg))
	}
	return job
}

func runBuild(cmd *cobra.Command, args []string) error {
	root := buildOut
	if root == "" {
		root = appCfg.WorkspaceRoot
	}
	cfg := appCfg.Build
	if buildWorkers > 0 {
		cfg.GlobalMax = buildWorkers
	}

	var pdr *audit.PDRWriter
	if !buildNoAudit {
		s, err := store.New(appCfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		pdr = audit.NewPDRWriter(s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	jobs := make([]scheduler.Job, len(args))
	for i, path := range args {
		jobs[i] = buildJob(path, root)
	}

	sch := scheduler.New(&cfg, pdr, logger)
	results := sch.Run(ctx, jobs)

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tTIME\tOUTPUT")
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\tfailed\t%s\t%s\n", r.Job, r.Duration.Round(time.Millisecond), r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\tok\t%s\t%s\n", r.Job, r.Duration.Round(time.Millisecond), r.Detail)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d builds failed", failed, len(results))
	}
	return nil
}
