// Package projectfile reads and writes project definitions on disk. The
// format is chosen by file extension: .yaml/.yml, .json or .hcl.
package projectfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/dagsmith/internal/models"
)

// ErrUnsupportedFormat is returned for unknown extensions and for saving HCL.
var ErrUnsupportedFormat = errors.New("unsupported project file format")

// Format identifies a project file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatOf derives the format from a path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads a project definition and applies the canonical normalization.
// It does not validate; callers decide whether invalid input is fatal.
func Load(path string) (*models.ProjectConfig, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var cfg *models.ProjectConfig
	switch format {
	case FormatHCL:
		cfg, err = decodeHCL(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading project file: %w", err)
		}
		cfg, err = Decode(format, data)
	}
	if err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Decode parses YAML or JSON bytes.
func Decode(format Format, data []byte) (*models.ProjectConfig, error) {
	var cfg models.ProjectConfig
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing yaml project: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing json project: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &cfg, nil
}

// Encode renders cfg as YAML or JSON.
func Encode(format Format, cfg *models.ProjectConfig) ([]byte, error) {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling yaml project: %w", err)
		}
		return data, nil
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling json project: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, format)
}

// Save writes cfg to path in the format its extension names.
func Save(path string, cfg *models.ProjectConfig) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(format, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating project dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	return nil
}
