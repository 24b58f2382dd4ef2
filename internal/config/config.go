package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // local | postgres
	LocalDir string `yaml:"local_dir"`
}

type WorkerConfig struct {
	Workers int `yaml:"workers"`
	Queue   int `yaml:"queue"`
}

// StagesConfig bounds each pipeline stage invocation. Exceeding a deadline
// fails the job, except for the CRM push which is best-effort.
type StagesConfig struct {
	PredictTimeout time.Duration `yaml:"predict_timeout"`
	RenderTimeout  time.Duration `yaml:"render_timeout"`
	PushTimeout    time.Duration `yaml:"push_timeout"`
}

type QuotaConfig struct {
	Capacity int           `yaml:"capacity"`
	Window   time.Duration `yaml:"window"`
}

type RulesConfig struct {
	Path           string        `yaml:"path"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

type PredictorConfig struct {
	Mode    string        `yaml:"mode"` // heuristic | remote
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CRMConfig struct {
	Provider string `yaml:"provider"` // hubspot | noop
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	Pipeline string `yaml:"pipeline"`
	Stage    string `yaml:"stage"`
}

type Config struct {
	Server     ServerConfig           `yaml:"server"`
	Log        LogConfig              `yaml:"log"`
	Database   DatabaseConfig         `yaml:"database"`
	Redis      RedisConfig            `yaml:"redis"`
	Storage    StorageConfig          `yaml:"storage"`
	Worker     WorkerConfig           `yaml:"worker"`
	Stages     StagesConfig           `yaml:"stages"`
	RateLimits map[string]QuotaConfig `yaml:"rate_limits"`
	Rules      RulesConfig            `yaml:"rules"`
	Predictor  PredictorConfig        `yaml:"predictor"`
	CRM        CRMConfig              `yaml:"crm"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "data/artifacts"
	}
	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 8
	}
	if cfg.Worker.Queue <= 0 {
		cfg.Worker.Queue = cfg.Worker.Workers * 8
	}
	if cfg.Stages.PredictTimeout <= 0 {
		cfg.Stages.PredictTimeout = 30 * time.Second
	}
	if cfg.Stages.RenderTimeout <= 0 {
		cfg.Stages.RenderTimeout = 20 * time.Second
	}
	if cfg.Stages.PushTimeout <= 0 {
		cfg.Stages.PushTimeout = 15 * time.Second
	}
	if cfg.RateLimits == nil {
		cfg.RateLimits = map[string]QuotaConfig{}
	}
	if _, ok := cfg.RateLimits["job-create"]; !ok {
		cfg.RateLimits["job-create"] = QuotaConfig{Capacity: 30, Window: time.Minute}
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = "rules/pricing_rules.yaml"
	}
	if cfg.Rules.ReloadInterval <= 0 {
		cfg.Rules.ReloadInterval = 30 * time.Second
	}
	if cfg.Predictor.Mode == "" {
		cfg.Predictor.Mode = "heuristic"
	}
	if cfg.Predictor.Timeout <= 0 {
		cfg.Predictor.Timeout = cfg.Stages.PredictTimeout
	}
	if cfg.CRM.Provider == "" {
		cfg.CRM.Provider = "noop"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "local", "postgres":
	default:
		return fmt.Errorf("storage.backend must be local or postgres, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("storage.backend=postgres requires database.url")
	}
	switch cfg.Predictor.Mode {
	case "heuristic":
	case "remote":
		if cfg.Predictor.BaseURL == "" {
			return fmt.Errorf("predictor.mode=remote requires predictor.base_url")
		}
	default:
		return fmt.Errorf("predictor.mode must be heuristic or remote, got %q", cfg.Predictor.Mode)
	}
	switch cfg.CRM.Provider {
	case "noop":
	case "hubspot":
		if cfg.CRM.Token == "" && !cfg.Runtime.Dev {
			return fmt.Errorf("crm.provider=hubspot requires crm.token")
		}
	default:
		return fmt.Errorf("crm.provider must be hubspot or noop, got %q", cfg.CRM.Provider)
	}
	return nil
}
