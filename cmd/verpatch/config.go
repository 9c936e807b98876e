package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config is the optional config.json / config.yaml file. JSON is read as YAML.
type Config struct {
	Version     string `yaml:"version"` // target version
	Current     string `yaml:"current"`
	Name        string `yaml:"name"`
	Encoding    string `yaml:"encoding"`
	Module      string `yaml:"module"`
	InstallPath string `yaml:"install_path"`
}

var configNames = []string{"config.json", "config.yaml", "config.yml"}

// defaultConfigDirs lists where a config file is looked for when none is given
func defaultConfigDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

// loadConfig reads path if given. Otherwise the first config file found in
// dirs is read, and having none is not an error.
func loadConfig(path string, dirs []string) (*Config, error) {
	if path != "" {
		return readConfig(path)
	}

	for _, dir := range dirs {
		for _, name := range configNames {
			cfg, err := readConfig(filepath.Join(dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cfg, err
		}
	}
	return &Config{}, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config file %s: %w", path, err)
	}
	return cfg, nil
}
