package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/relpack/pkg/util"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "relpack.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".relpack"

// GlobalConfigDir is the name of the global config directory inside the
// user's config dir.
const GlobalConfigDir = "relpack"

// Source records which files contributed to a loaded configuration.
type Source struct {
	Global  string
	Project string
}

// Load loads configuration for the project containing dir from all layers
// in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/relpack/config.toml)
//  3. Project config (.relpack/config.toml or relpack.toml, searched upward)
//  4. Environment variables (RELPACK_*)
//
// CLI flags are applied by the caller after Load returns. Unlike missing
// files, a config file that exists but does not parse is an error.
func Load(dir string) (*Config, Source, error) {
	cfg := NewConfig()
	var src Source

	if p := GetGlobalConfigPath(); p != "" {
		globalCfg, err := loadConfigFile(p)
		if err != nil {
			return nil, src, err
		}
		if globalCfg != nil {
			cfg.Merge(globalCfg)
			src.Global = p
		}
	}

	projectCfg, p, err := loadProjectConfigFrom(dir)
	if err != nil {
		return nil, src, err
	}
	if projectCfg != nil {
		cfg.Merge(projectCfg)
		src.Project = p
	}

	applyEnvironmentVariables(cfg)

	return cfg, src, nil
}

// loadProjectConfigFrom looks for project configuration starting from dir
// and walking up to the workspace root.
func loadProjectConfigFrom(dir string) (*Config, string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}

	for {
		for _, candidate := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(candidate)
			if err != nil {
				return nil, "", err
			}
			if cfg != nil {
				return cfg, candidate, nil
			}
		}

		if isWorkspaceRoot(current) {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil, "", nil
}

// isWorkspaceRoot checks if the directory is a project root (.git,
// xmake.lua or MODULE.bazel).
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", "xmake.lua", "MODULE.bazel"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file. A missing file
// returns nil, nil.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	return &cfg, nil
}

// applyEnvironmentVariables applies RELPACK_* environment variables.
func applyEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("RELPACK_PRODUCT_NAME"); v != "" {
		cfg.Product.Name = v
	}
	if v := os.Getenv("RELPACK_VERSION_FILE"); v != "" {
		cfg.Version.File = v
	}
	if v := os.Getenv("RELPACK_VERSION_FORMAT"); v != "" {
		cfg.Version.Format = v
	}
	if v := os.Getenv("RELPACK_ARCHIVE_EXCLUDE"); v != "" {
		cfg.Archive.Exclude = util.SplitAndTrim(v)
	}
	applyBoolEnv("RELPACK_ARCHIVE_REPRODUCIBLE", &cfg.Archive.Reproducible)

	applyBoolEnv("RELPACK_REGISTRY_ENABLED", &cfg.Registry.Enabled)
	if v := os.Getenv("RELPACK_REGISTRY_URL"); v != "" {
		cfg.Registry.URL = v
	}
	if v := os.Getenv("RELPACK_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	applyBoolEnv("RELPACK_REGISTRY_PUSH", &cfg.Registry.Push)

	applyBoolEnv("RELPACK_RELEASE_TAG", &cfg.Release.Tag)
	applyBoolEnv("RELPACK_RELEASE_REQUIRE_CLEAN", &cfg.Release.RequireClean)

	if v := os.Getenv("RELPACK_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if os.Getenv("NO_COLOR") != "" {
		t := true
		cfg.Output.NoColor = &t
	}
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for dir.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
