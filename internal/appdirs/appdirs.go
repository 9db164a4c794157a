package appdirs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	PortableEnv = "VEODIRECTOR_PORTABLE"
	HomeEnv     = "VEODIRECTOR_HOME"

	configFileName = "config.toml"
)

type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	OutputDir  string
	CacheDir   string
}

type resolveDeps struct {
	getenv     func(string) string
	executable func() (string, error)
}

func Resolve() (Paths, error) {
	return resolve(resolveDeps{
		getenv:     os.Getenv,
		executable: os.Executable,
	})
}

func resolve(rawDeps resolveDeps) (Paths, error) {
	deps := withDefaults(rawDeps)
	if home := strings.TrimSpace(deps.getenv(HomeEnv)); home != "" {
		return layoutUnder(home, false), nil
	}
	if isPortableEnabled(deps.getenv(PortableEnv)) {
		return resolvePortable(deps)
	}
	return defaultPaths(), nil
}

func withDefaults(deps resolveDeps) resolveDeps {
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}
	if deps.executable == nil {
		deps.executable = os.Executable
	}
	return deps
}

func resolvePortable(deps resolveDeps) (Paths, error) {
	executablePath, err := deps.executable()
	if err != nil {
		return Paths{}, err
	}
	if strings.TrimSpace(executablePath) == "" {
		return Paths{}, errors.New("executable path is empty")
	}

	return layoutUnder(filepath.Join(filepath.Dir(executablePath), "data"), true), nil
}

func layoutUnder(dataDir string, portable bool) Paths {
	configDir := filepath.Join(dataDir, "config")
	return Paths{
		Portable:   portable,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(dataDir, "logs"),
		OutputDir:  filepath.Join(dataDir, "output"),
		CacheDir:   filepath.Join(dataDir, "cache"),
	}
}

func defaultPaths() Paths {
	configDir := "config"
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     ".",
		OutputDir:  "data",
		CacheDir:   "cache",
	}
}

func isPortableEnabled(value string) bool {
	normalized := strings.TrimSpace(strings.ToLower(value))
	return normalized == "1" || normalized == "true"
}
