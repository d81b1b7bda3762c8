package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fentz26/dagsmith/internal/capacity"
	"github.com/fentz26/dagsmith/internal/compiler"
	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/projectfile"
	"github.com/fentz26/dagsmith/internal/workspace"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Generate dag.py, treatment.py and meta.yaml from a project file",
	Long: `Compile a project definition (.yaml, .json or .hcl). Without --out or --zip
the three artifacts are printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a project file and report pool usage per stage",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Print the task dependency flow",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

var (
	compileOut string
	compileZip string
)

func init() {
	compileCmd.Flags().StringVar(&compileOut, "out", "", "Write the project tree under this directory")
	compileCmd.Flags().StringVar(&compileZip, "zip", "", "Write the project tree as a zip archive")
}

// loadValid reads a project file and rejects invalid configurations.
func loadValid(path string) (*models.ProjectConfig, error) {
	cfg, err := projectfile.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// warnCapacity logs every over-capacity stage. It never fails.
func warnCapacity(cfg *models.ProjectConfig) []capacity.Report {
	reports := capacity.Check(cfg, appCfg.PoolCapacity)
	for _, r := range capacity.Over(reports) {
		logger.Warn("stage over pool capacity", "project", cfg.Name, "stage", r.StageID, "used", r.UsedSlots, "capacity", r.Capacity)
	}
	return reports
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadValid(args[0])
	if err != nil {
		return err
	}
	warnCapacity(cfg)
	art := compiler.Compile(cfg)

	if compileOut == "" && compileZip == "" {
		for _, name := range []string{compiler.DAGFile, compiler.LogicFile, compiler.MetaFile} {
			fmt.Printf("==> %s <==\n%s\n", name, art.Files()[name])
		}
		return nil
	}

	if compileOut != "" {
		dir, err := workspace.Write(compileOut, cfg, art)
		if err != nil {
			return err
		}
		logger.Info("project written", "project", cfg.Name, "dir", dir)
		fmt.Printf("Wrote %s\n", dir)
	}

	if compileZip != "" {
		if err := os.MkdirAll(filepath.Dir(compileZip), 0755); err != nil {
			return fmt.Errorf("create zip directory: %w", err)
		}
		f, err := os.Create(compileZip)
		if err != nil {
			return fmt.Errorf("create zip: %w", err)
		}
		if err := workspace.Bundle(f, cfg, art); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close zip: %w", err)
		}
		fmt.Printf("Wrote %s\n", compileZip)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadValid(args[0])
	if err != nil {
		return err
	}
	reports := warnCapacity(cfg)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tID\tTASKS\tSLOTS\tSTATUS")
	for i, r := range reports {
		status := "ok"
		if r.OverCapacity {
			status = "over capacity"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d/%d\t%s\n", r.Index, r.StageID, len(cfg.Pipeline[i].Tasks), r.UsedSlots, r.Capacity, status)
	}
	w.Flush()

	fmt.Printf("\n%s is valid (%d stages, %d tasks)\n", cfg.Name, len(cfg.Pipeline), len(cfg.Tasks()))
	return nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadValid(args[0])
	if err != nil {
		return err
	}
	for _, e := range compiler.FlowEdges(cfg.Pipeline) {
		fmt.Println(e)
	}
	return nil
}
