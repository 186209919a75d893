package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"inkwell/internal/build"
)

// Config holds all configuration options.
type Config struct {
	ContentDir string `json:"content_dir"` //nolint:tagliatelle // snake_case for config file
	Manifest   string `json:"manifest,omitempty"`
	Report     string `json:"report,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	Strict     bool   `json:"strict,omitempty"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ContentDir: "content",
	}
}

// ConfigFileName is the default project config file name. The file is JSONC:
// comments and trailing commas are allowed.
const ConfigFileName = ".inkwell.json"

var (
	errConfigInvalid      = errors.New("invalid config")
	errConfigFileNotFound = errors.New("config file not found")
	errContentDirEmpty    = errors.New("content_dir must not be empty")
	errWorkersNegative    = errors.New("workers must be >= 0")
)

// fileConfig mirrors Config with pointer fields so a loaded file can
// distinguish "absent" from "explicitly zero" during merging.
type fileConfig struct {
	ContentDir *string `json:"content_dir"` //nolint:tagliatelle // snake_case for config file
	Manifest   *string `json:"manifest"`
	Report     *string `json:"report"`
	Workers    *int    `json:"workers"`
	Strict     *bool   `json:"strict"`
}

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/inkwell/config.json if set, otherwise
// ~/.config/inkwell/config.json. Returns empty string if home cannot be
// determined.
//
// Only the explicit env map is consulted, never the ambient process
// environment, so callers (and tests) fully control what gets loaded.
func getGlobalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "inkwell", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "inkwell", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/inkwell/config.json)
// 3. Project config file at default location (.inkwell.json, if exists)
// 4. Explicit config file via configPath (if non-empty)
// 5. CLI overrides.
func LoadConfig(workDir, configPath string, overrides fileConfig, env map[string]string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()

	var sources ConfigSources

	globalCfg, globalPath, err := loadGlobalConfig(env)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	cfg = mergeConfig(cfg, overrides)

	validateErr := validateConfig(cfg)
	if validateErr != nil {
		return Config{}, ConfigSources{}, validateErr
	}

	return cfg, sources, nil
}

func loadGlobalConfig(env map[string]string) (fileConfig, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return fileConfig{}, "", nil
	}

	globalCfg, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return fileConfig{}, "", err
	}

	if !loaded {
		return fileConfig{}, "", nil
	}

	return globalCfg, globalCfgPath, nil
}

func loadProjectConfig(workDir, configPath string) (fileConfig, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		// Explicit config file, must exist.
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return fileConfig{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	fileCfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return fileConfig{}, "", err
	}

	if !loaded {
		return fileConfig{}, "", nil
	}

	return fileCfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return a zero config.
func loadConfigFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if mustExist {
			return fileConfig{}, false, fmt.Errorf("read config: %s: %w", path, err)
		}

		return fileConfig{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

func mergeConfig(base Config, overlay fileConfig) Config {
	if overlay.ContentDir != nil {
		base.ContentDir = *overlay.ContentDir
	}

	if overlay.Manifest != nil {
		base.Manifest = *overlay.Manifest
	}

	if overlay.Report != nil {
		base.Report = *overlay.Report
	}

	if overlay.Workers != nil {
		base.Workers = *overlay.Workers
	}

	if overlay.Strict != nil {
		base.Strict = *overlay.Strict
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.ContentDir == "" {
		return fmt.Errorf("%w: %w", errConfigInvalid, errContentDirEmpty)
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("%w: %w", errConfigInvalid, errWorkersNegative)
	}

	return nil
}

// FormatConfig returns the config as formatted JSON.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}

// paths derives the on-disk layout for a resolved config. All pipeline state
// lives under <content dir>/.inkwell so the scanner can skip it wholesale.
type paths struct {
	ContentDir string
	Manifest   string
	Report     string
	Index      string
	Lock       string
}

func resolvePaths(workDir string, cfg Config) paths {
	contentDir := cfg.ContentDir
	if !filepath.IsAbs(contentDir) {
		contentDir = filepath.Join(workDir, contentDir)
	}

	internal := filepath.Join(contentDir, build.InternalDir)

	p := paths{
		ContentDir: contentDir,
		Manifest:   filepath.Join(internal, "manifest.json"),
		Report:     filepath.Join(internal, "report.json"),
		Index:      filepath.Join(internal, "index.sqlite"),
		Lock:       filepath.Join(internal, "build.lock"),
	}

	if cfg.Manifest != "" {
		p.Manifest = cfg.Manifest
		if !filepath.IsAbs(p.Manifest) {
			p.Manifest = filepath.Join(workDir, p.Manifest)
		}
	}

	if cfg.Report != "" {
		p.Report = cfg.Report
		if !filepath.IsAbs(p.Report) {
			p.Report = filepath.Join(workDir, p.Report)
		}
	}

	return p
}
