package config

import (
	"os"
	"path/filepath"
	"testing"

	"veo-director/internal/appdirs"
)

func setupHomeTestEnv(t *testing.T, tmp string) {
	t.Helper()
	t.Setenv(appdirs.HomeEnv, tmp)
}

func TestResolveConfigPathUsesHomeEnv(t *testing.T) {
	tmp := t.TempDir()
	setupHomeTestEnv(t, tmp)

	p, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if want := filepath.Join(tmp, "config", "config.toml"); p != want {
		t.Fatalf("ResolveConfigPath() = %q, want %q", p, want)
	}
}

func TestLoadOrCreateConfigGeneratesDefaultWhenMissing(t *testing.T) {
	tmp := t.TempDir()
	setupHomeTestEnv(t, tmp)

	p, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}

	Conf = Config{}

	created, err := LoadOrCreateConfig()
	if err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if !created {
		t.Fatal("expected created=true when config file is missing")
	}

	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected config file to be created at %s: %v", p, err)
	}

	if Conf.Orchestrator.PollIntervalSec != 5 {
		t.Errorf("expected default PollIntervalSec=5, got %d", Conf.Orchestrator.PollIntervalSec)
	}
	if Conf.Session.MaxUploadMB != 20 {
		t.Errorf("expected default MaxUploadMB=20, got %d", Conf.Session.MaxUploadMB)
	}
	if Conf.Gemini.VideoModel != "veo-3.1-fast-generate-preview" {
		t.Errorf("unexpected default VideoModel %q", Conf.Gemini.VideoModel)
	}
}

func TestLoadOrCreateConfigLoadsExisting(t *testing.T) {
	tmp := t.TempDir()
	setupHomeTestEnv(t, tmp)

	Conf = defaultConfig()
	Conf.Server.Host = "0.0.0.0"
	Conf.Server.Port = 9999
	Conf.Orchestrator.JobTimeoutSec = 600
	if err := SaveConfig(); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	Conf = Config{}

	created, err := LoadOrCreateConfig()
	if err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if created {
		t.Fatal("expected created=false when config file exists")
	}

	if Conf.Server.Host != "0.0.0.0" {
		t.Errorf("expected loaded Server.Host=0.0.0.0, got %s", Conf.Server.Host)
	}
	if Conf.Server.Port != 9999 {
		t.Errorf("expected loaded Server.Port=9999, got %d", Conf.Server.Port)
	}
	if Conf.Orchestrator.JobTimeoutSec != 600 {
		t.Errorf("expected loaded JobTimeoutSec=600, got %d", Conf.Orchestrator.JobTimeoutSec)
	}
}

func TestUseConfigFileOverridesResolvedPath(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "nested", "veo.toml")
	UseConfigFile(custom)
	t.Cleanup(func() { UseConfigFile("") })

	created, err := LoadOrCreateConfig()
	if err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if !created {
		t.Fatal("expected defaults to be written to the custom path")
	}
	if _, err := os.Stat(custom); err != nil {
		t.Fatalf("expected config at %s: %v", custom, err)
	}
}
