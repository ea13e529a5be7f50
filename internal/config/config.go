package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/chat"
	"MarketPrompt/internal/components"
	"MarketPrompt/internal/indicator"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Proxy     string `yaml:"proxy"`
	Network   struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"network"`
	Chat     chat.Config `yaml:"chat"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Exchanges struct {
		REST struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"rest"`
	} `yaml:"exchanges"`
	Jobs []Job `yaml:"jobs"`
}

// envOverrides are read with the PROMPTER_ prefix; each also falls back to
// its unprefixed name, e.g. PROMPTER_OPENAI_API_KEY then OPENAI_API_KEY.
type envOverrides struct {
	LogLevel         string        `envconfig:"LOG_LEVEL"`
	LogFormat        string        `envconfig:"LOG_FORMAT"`
	Proxy            string        `envconfig:"HTTPS_PROXY"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT"`
	ChatProvider     string        `envconfig:"CHAT_PROVIDER"`
	ChatModel        string        `envconfig:"CHAT_MODEL"`
	OpenAIAPIKey     string        `envconfig:"OPENAI_API_KEY"`
	OllamaHost       string        `envconfig:"OLLAMA_HOST"`
	TelegramBotToken string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string        `envconfig:"TELEGRAM_CHAT_ID"`
	SQLitePath       string        `envconfig:"SQLITE_PATH"`
	ServerAddr       string        `envconfig:"SERVER_ADDR"`
	RESTBaseURL      string        `envconfig:"REST_BASE_URL"`
	RESTAPIKey       string        `envconfig:"REST_API_KEY"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROMPTER"

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.LogLevel, env.LogLevel)
	set(&c.LogFormat, env.LogFormat)
	set(&c.Proxy, env.Proxy)
	set(&c.Chat.Provider, env.ChatProvider)
	set(&c.Chat.Model, env.ChatModel)
	set(&c.Telegram.BotToken, env.TelegramBotToken)
	set(&c.Telegram.ChatID, env.TelegramChatID)
	set(&c.Database.SQLitePath, env.SQLitePath)
	set(&c.Server.Addr, env.ServerAddr)
	set(&c.Exchanges.REST.BaseURL, env.RESTBaseURL)
	set(&c.Exchanges.REST.APIKey, env.RESTAPIKey)
	if env.HTTPTimeout > 0 {
		c.Network.Timeout = env.HTTPTimeout
	}
	if env.OpenAIAPIKey != "" && c.Chat.APIKey == "" {
		c.Chat.APIKey = env.OpenAIAPIKey
	}
	if env.OllamaHost != "" && strings.EqualFold(c.Chat.Provider, "ollama") && c.Chat.BaseURL == "" {
		c.Chat.BaseURL = env.OllamaHost
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Network.Timeout <= 0 {
		c.Network.Timeout = 30 * time.Second
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = "openai"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/prompter.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a six-field cron spec (with seconds) or a descriptor.
func ParseCron(spec string) (cron.Schedule, error) {
	return cronParser.Parse(spec)
}

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	switch strings.ToLower(c.Chat.Provider) {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("chat.provider must be openai or ollama, got %q", c.Chat.Provider))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram.bot_token and telegram.chat_id must be set together"))
	}

	seen := map[string]bool{}
	for i := range c.Jobs {
		job := &c.Jobs[i]
		if job.Name == "" {
			errs = append(errs, fmt.Errorf("jobs[%d]: name is required", i))
			continue
		}
		if seen[job.Name] {
			errs = append(errs, fmt.Errorf("job %s: duplicate name", job.Name))
		}
		seen[job.Name] = true
		if err := job.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.Name, err))
		}
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Job returns the job with the given name.
func (c *Config) Job(name string) (Job, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// indicatorOptions is the part of ohlcv_indicators options checked at load.
type indicatorOptions struct {
	Indicators indicator.Config `yaml:"indicators"`
}

func validateComponent(cc ComponentConfig) error {
	if !components.Known(cc.Type) {
		return fmt.Errorf("unknown component type %q", cc.Type)
	}
	if cc.Type == "ohlcv_indicators" && cc.Options.Kind != 0 {
		var opts indicatorOptions
		if err := cc.Options.Decode(&opts); err != nil {
			return fmt.Errorf("%s options: %w", cc.Type, err)
		}
		if err := opts.Indicators.Validate(); err != nil {
			return fmt.Errorf("%s: %w", cc.Type, err)
		}
	}
	for _, pp := range cc.PostProcessors {
		if !KnownPostProcessor(pp.Type) {
			return fmt.Errorf("%s: unknown post-processor %q", cc.Type, pp.Type)
		}
	}
	return nil
}
