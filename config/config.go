package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderHttp   = "http"
	ProviderRpc    = "rpc"
)

type Config struct {
	Api     ApiConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
	Editor  EditorConfig  `yaml:"editor"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Http    HttpConfig    `yaml:"http"`
	Rpc     RpcConfig     `yaml:"rpc"`
	Session SessionConfig `yaml:"session"`
}

type ApiConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowedOrigins"`
	BodyLimitMB    int    `yaml:"bodyLimitMB"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type EditorConfig struct {
	// Provider selects the edit backend: gemini, http or rpc.
	Provider       string `yaml:"provider"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type GeminiConfig struct {
	ApiKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type HttpConfig struct {
	Url    string `yaml:"url"`
	ApiKey string `yaml:"apiKey"`
}

type RpcConfig struct {
	Peer string `yaml:"peer"`
	Port string `yaml:"port"`
}

type SessionConfig struct {
	MaxIdleMinutes       int `yaml:"maxIdleMinutes"`
	SweepIntervalSeconds int `yaml:"sweepIntervalSeconds"`
}

// Normalize fills defaults and checks that the chosen provider is usable.
func (c *Config) Normalize() error {
	if c.Api.Port == "" {
		c.Api.Port = "8080"
	}
	if c.Api.AllowedOrigins == "" {
		c.Api.AllowedOrigins = "*"
	}
	if c.Api.BodyLimitMB <= 0 {
		c.Api.BodyLimitMB = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Editor.TimeoutSeconds <= 0 {
		c.Editor.TimeoutSeconds = 240
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash-image"
	}
	if c.Session.MaxIdleMinutes <= 0 {
		c.Session.MaxIdleMinutes = 60
	}
	if c.Session.SweepIntervalSeconds <= 0 {
		c.Session.SweepIntervalSeconds = 60
	}

	c.Editor.Provider = strings.ToLower(strings.TrimSpace(c.Editor.Provider))
	switch c.Editor.Provider {
	case "", ProviderGemini:
		c.Editor.Provider = ProviderGemini
		if strings.TrimSpace(c.Gemini.ApiKey) == "" {
			return errors.New("gemini.apiKey is required for the gemini provider")
		}
	case ProviderHttp:
		if strings.TrimSpace(c.Http.Url) == "" {
			return errors.New("http.url is required for the http provider")
		}
	case ProviderRpc:
		if c.Rpc.Peer == "" || c.Rpc.Port == "" {
			return errors.New("rpc.peer and rpc.port are required for the rpc provider")
		}
	default:
		return fmt.Errorf("unknown editor provider %q", c.Editor.Provider)
	}
	return nil
}

func (c EditorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c SessionConfig) MaxIdle() time.Duration {
	return time.Duration(c.MaxIdleMinutes) * time.Minute
}

func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
