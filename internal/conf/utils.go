// conf/utils.go config file location and persistence
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/go-audioclient/internal/errors"
)

const appDirName = "audioclient"

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// most specific first.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", appDirName))
		} else {
			paths = append(paths, filepath.Join(homeDir, ".config", appDirName))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, filepath.Join("/etc", appDirName))
	}

	return paths
}

// FindConfigFile returns the first config.yaml found on the search paths.
func FindConfigFile() (string, error) {
	for _, path := range GetDefaultConfigPaths() {
		candidate := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryNotFound).
		Context("operation", "find_config_file").
		Build()
}

// WriteDefault writes the default settings to configPath.
func WriteDefault(configPath string) error {
	return SaveYAMLConfig(configPath, Defaults())
}

// SaveYAMLConfig writes settings to configPath through a temporary file and
// rename so that readers never observe a partial file.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create_config_dir").
			Context("path", dir).
			Build()
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName) //nolint:errcheck // already renamed on success

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "replace_config").
			Context("path", configPath).
			Build()
	}
	return nil
}
