package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variables that map directly onto
// config keys, e.g. GITLAB_SCRIPTS_BOT_SEARCH_LIMIT -> bot.search_limit.
const EnvPrefix = "GITLAB_SCRIPTS_"

var (
	// ErrMissingToken is returned when no GitLab access token is configured.
	ErrMissingToken = errors.New("missing GitLab access token (set GITLAB_PERSONAL_ACCESS_TOKEN)")
	// ErrMissingRepository is returned when the bot has no project to work on.
	ErrMissingRepository = errors.New("missing bot repository (set GITLAB_REPOSITORY)")
)

// Config represents the application configuration
type Config struct {
	GitLab struct {
		URL        string `koanf:"url"`
		Token      string `koanf:"token"`
		Group      string `koanf:"group"`
		Repository string `koanf:"repository"`
	} `koanf:"gitlab"`

	AI struct {
		Provider    string  `koanf:"provider"`
		Model       string  `koanf:"model"`
		APIKey      string  `koanf:"api_key"`
		BaseURL     string  `koanf:"base_url"`
		Temperature float64 `koanf:"temperature"`
	} `koanf:"ai"`

	Bot struct {
		Username     string        `koanf:"username"`
		SearchLimit  int           `koanf:"search_limit"`
		ReplyTimeout time.Duration `koanf:"reply_timeout"`
	} `koanf:"bot"`

	Server struct {
		Addr string `koanf:"addr"`
	} `koanf:"server"`

	Webhook struct {
		Secret string `koanf:"secret"`
	} `koanf:"webhook"`

	Invite struct {
		File        string `koanf:"file"`
		AccessLevel string `koanf:"access_level"`
	} `koanf:"invite"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// Defaults are applied before any file or environment source.
var Defaults = map[string]interface{}{
	"gitlab.url":          "https://git.lug.ustc.edu.cn/",
	"gitlab.group":        "Compiler25",
	"ai.provider":         "openai",
	"ai.model":            "gpt-3.5-turbo",
	"ai.temperature":      0.7,
	"bot.username":        "compilerh-course-bot",
	"bot.search_limit":    20,
	"bot.reply_timeout":   "2m",
	"server.addr":         "127.0.0.1:7860",
	"invite.file":         "uid.csv",
	"invite.access_level": "developer",
	"log.level":           "info",
	"log.format":          "console",
}

// envAliases maps the plain variable names used by the deployment scripts to
// config keys. They predate the prefixed form and are kept as the primary
// way to configure the tools.
var envAliases = map[string]string{
	"GITLAB_PERSONAL_ACCESS_TOKEN": "gitlab.token",
	"GITLAB_URL":                   "gitlab.url",
	"GITLAB_GROUP":                 "gitlab.group",
	"GITLAB_REPOSITORY":            "gitlab.repository",
	"LLM_PROVIDER":                 "ai.provider",
	"MODEL_NAME":                   "ai.model",
	"OPENAI_API_KEY":               "ai.api_key",
	"OPENAI_BASE_URL":              "ai.base_url",
	"BOT_USERNAME":                 "bot.username",
	"WEBHOOK_SECRET":               "webhook.secret",
	"LISTEN_ADDR":                  "server.addr",
	"LOG_LEVEL":                    "log.level",
	"LOG_FORMAT":                   "log.format",
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables that are already set win. A missing file is not an
// error so the default ".env" can be passed unconditionally.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading env file %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads the configuration from defaults, an optional TOML file and
// the environment, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envAliases[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKey(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	config.GitLab.URL = strings.TrimRight(config.GitLab.URL, "/")
	return &config, nil
}

// envKey turns GITLAB_SCRIPTS_BOT_SEARCH_LIMIT into bot.search_limit. Only
// the first underscore after the prefix separates the section from the key.
func envKey(s string) string {
	rest := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(rest, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// ValidateInvite checks what the invite command needs.
func ValidateInvite(config *Config) error {
	if config.GitLab.Token == "" {
		return ErrMissingToken
	}
	if config.GitLab.URL == "" {
		return fmt.Errorf("gitlab url is required")
	}
	if config.GitLab.Group == "" {
		return fmt.Errorf("gitlab group is required")
	}
	return nil
}

// ValidateBot checks what the webhook bot needs.
func ValidateBot(config *Config) error {
	if config.GitLab.Token == "" {
		return ErrMissingToken
	}
	if config.GitLab.URL == "" {
		return fmt.Errorf("gitlab url is required")
	}
	if config.GitLab.Repository == "" {
		return ErrMissingRepository
	}
	if config.Bot.Username == "" {
		return fmt.Errorf("bot username is required")
	}
	if config.AI.Model == "" {
		return fmt.Errorf("ai model is required")
	}
	if config.Bot.SearchLimit < 0 {
		return fmt.Errorf("bot search_limit must not be negative")
	}
	return nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# gitlab-scripts configuration
# Every key can also be set through the environment, see README.

[gitlab]
url = "https://git.lug.ustc.edu.cn/"
token = "your-gitlab-token"
group = "Compiler25"
repository = "group/project"

[ai]
provider = "openai"
model = "gpt-3.5-turbo"
api_key = "your-api-key"

[bot]
username = "compilerh-course-bot"
search_limit = 20
reply_timeout = "2m"

[server]
addr = "127.0.0.1:7860"

[webhook]
# secret = "shared-secret-from-gitlab-webhook-settings"

[invite]
file = "uid.csv"
access_level = "developer"

[log]
level = "info"
format = "console"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
