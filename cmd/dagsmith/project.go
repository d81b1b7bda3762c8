package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/projectfile"
	"github.com/fentz26/dagsmith/internal/workspace"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects stored by the daemon",
}

var projectSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Store a project definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectSave,
}

var projectLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Print a stored project definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectLoad,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored projects",
	RunE:  runProjectList,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

var projectHistoryCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Show the audit trail of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectHistory,
}

var projectImportCmd = &cobra.Command{
	Use:   "import <meta.yaml|repo-dir>",
	Short: "Recover a project definition from generated files",
	Long: `Import reads an existing meta.yaml, or a generated repository directory
(r_<code>_<project>) in which case tasks are recovered from src/treatment.py and
the schedule from dag.py.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectImport,
}

var (
	loadFormat   string
	loadOut      string
	importSave   bool
	historyLimit int
)

func init() {
	projectCmd.AddCommand(projectSaveCmd, projectLoadCmd, projectListCmd, projectDeleteCmd, projectHistoryCmd, projectImportCmd)

	projectLoadCmd.Flags().StringVar(&loadFormat, "format", "yaml", "Output format: yaml or json")
	projectLoadCmd.Flags().StringVar(&loadOut, "out", "", "Write to this file instead of stdout")
	projectImportCmd.Flags().BoolVar(&importSave, "save", false, "Store the imported project through the daemon")
	projectHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries")
}

func runProjectSave(cmd *cobra.Command, args []string) error {
	cfg, err := projectfile.Load(args[0])
	if err != nil {
		return err
	}
	return saveRemote(cfg)
}

func saveRemote(cfg *models.ProjectConfig) error {
	resp, err := apiPost("/projects", cfg)
	if err != nil {
		return err
	}
	var rec models.ProjectRecord
	if err := json.Unmarshal(resp, &rec); err != nil {
		return err
	}
	fmt.Printf("Saved project %s (%s)\n", rec.Name, truncateID(rec.ID))
	return nil
}

func fetchProject(name string) (*models.ProjectConfig, error) {
	resp, err := apiGet("/projects/" + url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	var rec models.ProjectRecord
	if err := json.Unmarshal(resp, &rec); err != nil {
		return nil, err
	}
	return &rec.Config, nil
}

func runProjectLoad(cmd *cobra.Command, args []string) error {
	cfg, err := fetchProject(args[0])
	if err != nil {
		return err
	}
	if loadOut != "" {
		if err := projectfile.Save(loadOut, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", loadOut)
		return nil
	}
	data, err := projectfile.Encode(projectfile.Format(loadFormat), cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runProjectList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/projects")
	if err != nil {
		return err
	}

	var projects []models.ProjectSummary
	if err := json.Unmarshal(resp, &projects); err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTAGES\tTASKS\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", truncateID(p.ID), p.Name, p.Stages, p.Tasks, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	if _, err := apiDelete("/projects/" + url.PathEscape(args[0])); err != nil {
		return err
	}
	fmt.Printf("Deleted project %s\n", args[0])
	return nil
}

func runProjectHistory(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/projects/" + url.PathEscape(args[0]) + "/history?limit=" + strconv.Itoa(historyLimit))
	if err != nil {
		return err
	}

	var entries []models.PDREntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Outcome, truncate(e.Details, 50))
	}
	w.Flush()
	return nil
}

func runProjectImport(cmd *cobra.Command, args []string) error {
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}

	var cfg *models.ProjectConfig
	if info.IsDir() {
		cfg, err = workspace.Import(args[0])
	} else {
		cfg, err = workspace.ImportMeta(args[0])
	}
	if err != nil {
		return err
	}

	if importSave {
		return saveRemote(cfg)
	}
	data, err := projectfile.Encode(projectfile.FormatYAML, cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
