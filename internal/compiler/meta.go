package compiler

import (
	"fmt"
	"strings"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/naming"
)

// Meta renders the metadata descriptor. Keys appear in a fixed order and
// optional keys are emitted only when their toggle is on and a value is set.
func Meta(cfg *models.ProjectConfig) string {
	var lines []string
	add := func(key, value string) {
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
	}

	add("folder", naming.Folder(cfg.Name, cfg.OwnerCode))
	add("stage", string(cfg.Stage))
	add("ld_data", strings.ToUpper(cfg.Namespace))
	add("persoid", cfg.OwnerID)

	if len(cfg.Pools) > 0 {
		lines = append(lines, "pools:")
		for _, p := range cfg.Pools {
			lines = append(lines, "  - "+p)
		}
	}
	if cfg.UseDatabase && cfg.ContextTag != "" {
		add("silot", cfg.ContextTag)
	}
	if cfg.UseManagedEnv && cfg.EnvName != "" {
		add("env_name", cfg.EnvName)
	}
	if cfg.UseInput && cfg.InputPath != "" {
		add("input_folder", naming.AbsWorkspacePath(cfg.InputPath))
	}
	if cfg.UseOutput && cfg.OutputPath != "" {
		add("output_folder", naming.AbsWorkspacePath(cfg.OutputPath))
	}
	if cfg.UseSharedStorage {
		add("NAS", "true")
	}
	if cfg.UseAccelerator {
		add("GPU", "true")
	}

	return strings.Join(lines, "\n") + "\n"
}
