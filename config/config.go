package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"veo-director/internal/appdirs"
	"veo-director/log"
)

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type GeminiConfig struct {
	ApiKey         string `toml:"api_key"`
	BaseUrl        string `toml:"base_url"`
	AnalysisModel  string `toml:"analysis_model"`
	ScriptingModel string `toml:"scripting_model"`
	VideoModel     string `toml:"video_model"`
	Resolution     string `toml:"resolution"`
	AspectRatio    string `toml:"aspect_ratio"`
	NumberOfVideos int    `toml:"number_of_videos"`
}

type OpenaiCompatibleConfig struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type ScriptingConfig struct {
	// Provider is "gemini" or "openai".
	Provider     string                 `toml:"provider"`
	SceneSeconds int                    `toml:"scene_seconds"`
	Openai       OpenaiCompatibleConfig `toml:"openai"`
}

type OrchestratorConfig struct {
	PollIntervalSec int `toml:"poll_interval_sec"`
	// JobTimeoutSec bounds one synthesis job; 0 polls until the operation is done.
	JobTimeoutSec int `toml:"job_timeout_sec"`
	Workers       int `toml:"workers"`
	// BatchWorkers run generate-all batches apart from Workers.
	BatchWorkers int `toml:"batch_workers"`
	QueueSize    int `toml:"queue_size"`
}

type SessionConfig struct {
	MaxUploadMB int  `toml:"max_upload_mb"`
	Persist     bool `toml:"persist"`
}

type QueueConfig struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
	// BatchConcurrency serves the batch queue on a separate server.
	BatchConcurrency int `toml:"batch_concurrency"`
}

type OssConfig struct {
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	AccessKeyId     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	PresignMinutes  int    `toml:"presign_minutes"`
}

type AssetsConfig struct {
	// Backend is "local" or "oss".
	Backend string    `toml:"backend"`
	Oss     OssConfig `toml:"oss"`
}

type CredentialConfig struct {
	// Interactive makes scene jobs wait for a key to be supplied through the API
	// when none is selected yet.
	Interactive bool `toml:"interactive"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Config struct {
	Server       ServerConfig       `toml:"server"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Scripting    ScriptingConfig    `toml:"scripting"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Session      SessionConfig      `toml:"session"`
	Queue        QueueConfig        `toml:"queue"`
	Assets       AssetsConfig       `toml:"assets"`
	Credential   CredentialConfig   `toml:"credential"`
	Metrics      MetricsConfig      `toml:"metrics"`
}

var Conf = defaultConfig()

var resolveConfigPath = ResolveConfigPath

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8888,
			LogLevel: "info",
		},
		Gemini: GeminiConfig{
			AnalysisModel:  "gemini-3-pro-preview",
			ScriptingModel: "gemini-3-flash-preview",
			VideoModel:     "veo-3.1-fast-generate-preview",
			Resolution:     "720p",
			AspectRatio:    "16:9",
			NumberOfVideos: 1,
		},
		Scripting: ScriptingConfig{
			Provider:     "gemini",
			SceneSeconds: 8,
			Openai: OpenaiCompatibleConfig{
				Model: "gpt-4o-mini",
			},
		},
		Orchestrator: OrchestratorConfig{
			PollIntervalSec: 5,
			JobTimeoutSec:   0,
			Workers:         2,
			BatchWorkers:    1,
			QueueSize:       128,
		},
		Session: SessionConfig{
			MaxUploadMB: 20,
			Persist:     true,
		},
		Queue: QueueConfig{
			Enabled:          false,
			RedisAddr:        "localhost:6379",
			Concurrency:      2,
			BatchConcurrency: 1,
		},
		Assets: AssetsConfig{
			Backend: "local",
			Oss: OssConfig{
				Prefix:         "veo-director",
				PresignMinutes: 60,
			},
		},
		Credential: CredentialConfig{
			Interactive: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// UseConfigFile pins the config file location, bypassing the resolved app dirs.
func UseConfigFile(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		resolveConfigPath = ResolveConfigPath
		return
	}
	resolveConfigPath = func() (string, error) { return path, nil }
}

// ResolveConfigPathInUse honours a path pinned with UseConfigFile.
func ResolveConfigPathInUse() (string, error) {
	return resolveConfigPath()
}

func ResolveConfigPath() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return dirs.ConfigFile, nil
}

// LoadOrCreateConfig decodes the config file into Conf, writing the defaults
// first when the file does not exist. It reports whether a file was created.
func LoadOrCreateConfig() (bool, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	Conf = defaultConfig()
	if _, err = os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err = SaveConfig(); err != nil {
			return false, err
		}
		return true, nil
	} else if err != nil {
		return false, err
	}

	if _, err = toml.DecodeFile(configPath, &Conf); err != nil {
		return false, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	return false, nil
}

func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = toml.NewEncoder(&buf).Encode(Conf); err != nil {
		return err
	}
	return os.WriteFile(configPath, buf.Bytes(), 0o600)
}

// LoadConfig loads the file, then applies .env and environment overrides.
func LoadConfig() bool {
	created, err := LoadOrCreateConfig()
	if err != nil {
		log.GetLogger().Error("failed to load config", zap.Error(err))
		return false
	}
	if created {
		log.GetLogger().Info("no config file found, wrote defaults")
	}

	_ = godotenv.Load()
	applyEnvOverrides(&Conf, os.Getenv)

	if !log.SetConsoleLevel(Conf.Server.LogLevel) {
		log.GetLogger().Warn("unknown log level, keeping info", zap.String("log_level", Conf.Server.LogLevel))
	}
	return true
}

func applyEnvOverrides(c *Config, getenv func(string) string) {
	for _, key := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			c.Gemini.ApiKey = v
			break
		}
	}
	if v := strings.TrimSpace(getenv("OPENAI_API_KEY")); v != "" {
		c.Scripting.Openai.ApiKey = v
	}
	if v := strings.TrimSpace(getenv("REDIS_ADDR")); v != "" {
		c.Queue.RedisAddr = v
	}
}

func CheckConfig() error {
	if Conf.Server.Port <= 0 || Conf.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", Conf.Server.Port)
	}
	if Conf.Session.MaxUploadMB <= 0 {
		return errors.New("session.max_upload_mb must be positive")
	}
	if Conf.Orchestrator.PollIntervalSec <= 0 {
		return errors.New("orchestrator.poll_interval_sec must be positive")
	}
	if Conf.Orchestrator.JobTimeoutSec < 0 {
		return errors.New("orchestrator.job_timeout_sec must not be negative")
	}
	if Conf.Orchestrator.Workers <= 0 || Conf.Orchestrator.BatchWorkers <= 0 {
		return errors.New("orchestrator.workers and orchestrator.batch_workers must be positive")
	}
	if Conf.Gemini.NumberOfVideos <= 0 {
		Conf.Gemini.NumberOfVideos = 1
	}

	switch Conf.Scripting.Provider {
	case "", "gemini":
		Conf.Scripting.Provider = "gemini"
	case "openai":
		if Conf.Scripting.Openai.ApiKey == "" {
			return errors.New("scripting.openai.api_key is required when scripting.provider is openai")
		}
	default:
		return fmt.Errorf("unsupported scripting.provider %q", Conf.Scripting.Provider)
	}

	switch Conf.Assets.Backend {
	case "", "local":
		Conf.Assets.Backend = "local"
	case "oss":
		oss := Conf.Assets.Oss
		if oss.Bucket == "" || oss.Region == "" || oss.AccessKeyId == "" || oss.AccessKeySecret == "" {
			return errors.New("assets.oss requires bucket, region, access_key_id and access_key_secret")
		}
	default:
		return fmt.Errorf("unsupported assets.backend %q", Conf.Assets.Backend)
	}

	if Conf.Queue.Enabled && Conf.Queue.RedisAddr == "" {
		return errors.New("queue.redis_addr is required when queue.enabled is true")
	}

	// A missing Gemini key is only fatal without the interactive credential flow.
	if Conf.Gemini.ApiKey == "" && !Conf.Credential.Interactive {
		log.GetLogger().Warn("gemini.api_key is empty; remote calls will fail until a key is configured")
	}
	return nil
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.Session.MaxUploadMB) * 1024 * 1024
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Orchestrator.PollIntervalSec) * time.Second
}

func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.Orchestrator.JobTimeoutSec) * time.Second
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
