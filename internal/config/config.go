package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Cache     CacheConfig     `yaml:"cache"`
	Speech    SpeechConfig    `yaml:"speech"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type CacheConfig struct {
	Path string `yaml:"path"`
}

type SpeechConfig struct {
	APIKey       string `yaml:"api_key"`
	VoiceID      string `yaml:"voice_id"`
	ModelID      string `yaml:"model_id"`
	OutputFormat string `yaml:"output_format"`
}

type AdvisorConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	BufferSeconds float64 `yaml:"buffer_seconds"`
	FPS           int     `yaml:"fps"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FORMCOACH_ and underscore-separated paths:
//
//	FORMCOACH_SERVER_HOST, FORMCOACH_SERVER_PORT,
//	FORMCOACH_AUTH_API_KEY, FORMCOACH_CACHE_PATH,
//	FORMCOACH_SPEECH_API_KEY, FORMCOACH_SPEECH_VOICE_ID,
//	FORMCOACH_ADVISOR_ENDPOINT, FORMCOACH_ADVISOR_API_KEY
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORMCOACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FORMCOACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FORMCOACH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("FORMCOACH_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("FORMCOACH_SPEECH_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("FORMCOACH_SPEECH_VOICE_ID"); v != "" {
		cfg.Speech.VoiceID = v
	}
	if v := os.Getenv("FORMCOACH_ADVISOR_ENDPOINT"); v != "" {
		cfg.Advisor.Endpoint = v
	}
	if v := os.Getenv("FORMCOACH_ADVISOR_API_KEY"); v != "" {
		cfg.Advisor.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "formcoach.db"
	}
	if cfg.Speech.ModelID == "" {
		cfg.Speech.ModelID = "eleven_turbo_v2_5"
	}
	if cfg.Speech.OutputFormat == "" {
		cfg.Speech.OutputFormat = "mp3_44100_128"
	}
	if cfg.Advisor.BufferSeconds == 0 {
		cfg.Advisor.BufferSeconds = 4
	}
	if cfg.Advisor.FPS == 0 {
		cfg.Advisor.FPS = 10
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
