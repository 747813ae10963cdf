package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	ModePolling = "polling"
	ModeConsole = "console" // stdin/stdout transport for local runs, no credential needed

	KeyringService = "gamebot"
	KeyringAccount = "bot_token"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token        string  `yaml:"token" env:"BOT_TOKEN"`
	TokenKeyring bool    `yaml:"token_keyring" env:"BOT_TOKEN_KEYRING"`
	Mode         string  `yaml:"mode" env:"BOT_MODE"` // polling | console
	Language     string  `yaml:"language" env:"BOT_LANGUAGE"`
	Workers      int     `yaml:"workers" env:"BOT_WORKERS"`
	SendRate     float64 `yaml:"send_rate" env:"BOT_SEND_RATE"` // outbound messages per second
	APIEndpoint  string  `yaml:"api_endpoint" env:"BOT_API_ENDPOINT"`
	Debug        bool    `yaml:"debug" env:"BOT_DEBUG"`
}

type PollConfig struct {
	Timeout        time.Duration `yaml:"timeout" env:"POLL_TIMEOUT"`
	SendTimeout    time.Duration `yaml:"send_timeout" env:"POLL_SEND_TIMEOUT"`
	BackoffInitial time.Duration `yaml:"backoff_initial" env:"POLL_BACKOFF_INITIAL"`
	BackoffMax     time.Duration `yaml:"backoff_max" env:"POLL_BACKOFF_MAX"`
	BackoffFactor  float64       `yaml:"backoff_factor" env:"POLL_BACKOFF_FACTOR"`
}

// MenuConfig feeds the /start menu. GameURL is the external web app.
type MenuConfig struct {
	GameURL       string `yaml:"game_url" env:"MENU_GAME_URL"`
	StatsURL      string `yaml:"stats_url" env:"MENU_STATS_URL"`
	ShareQuery    string `yaml:"share_query" env:"MENU_SHARE_QUERY"`
	PhotoURL      string `yaml:"photo_url" env:"MENU_PHOTO_URL"`
	SigningSecret string `yaml:"signing_secret" env:"MENU_SIGNING_SECRET"`
	Audience      string `yaml:"audience" env:"MENU_AUDIENCE"`
}

// ButtonConfig declares one button; set exactly one of WebApp, Share, Link.
type ButtonConfig struct {
	Label  string  `yaml:"label"`
	WebApp string  `yaml:"web_app"`
	Share  *string `yaml:"share"`
	Link   string  `yaml:"link"`
}

// CommandConfig declares an extra static command.
type CommandConfig struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Text        string           `yaml:"text"`
	ParseMode   string           `yaml:"parse_mode"` // "" | HTML | MarkdownV2
	Photo       string           `yaml:"photo"`
	Buttons     [][]ButtonConfig `yaml:"buttons"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling" env:"LOG_SAMPLING"`
}

type AdminConfig struct {
	Port int `yaml:"port" env:"ADMIN_PORT"` // 0 disables the admin server
}

// RedisConfig enables per-user rate limiting when URL is set.
type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	Limit    int           `yaml:"limit" env:"REDIS_RATE_LIMIT"`
	Window   time.Duration `yaml:"window" env:"REDIS_RATE_WINDOW"`
}

type Config struct {
	Bot      BotConfig       `yaml:"bot"`
	Poll     PollConfig      `yaml:"poll"`
	Menu     MenuConfig      `yaml:"menu"`
	Commands []CommandConfig `yaml:"commands"`
	Log      LogConfig       `yaml:"log"`
	Admin    AdminConfig     `yaml:"admin"`
	Redis    RedisConfig     `yaml:"redis"`

	Runtime RuntimeConfig `yaml:"-"`
}

var keyringGet = keyring.Get

// Load reads the YAML file at path, applies defaults and environment
// overrides. It does not resolve the keychain credential or validate; use
// LoadConfig before starting the bot. A missing file is fine when env
// supplies everything.
func Load(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	for _, section := range []any{&cfg.Bot, &cfg.Poll, &cfg.Menu, &cfg.Log, &cfg.Admin, &cfg.Redis} {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("env overrides: %w", err)
		}
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// LoadConfig is Load followed by the keychain credential fallback and
// validation.
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg, err := Load(path, dev)
	if err != nil {
		return nil, err
	}

	if cfg.Bot.Token == "" && cfg.Bot.TokenKeyring {
		tok, err := keyringGet(KeyringService, KeyringAccount)
		if err != nil {
			return nil, fmt.Errorf("read bot token from keychain: %w", err)
		}
		cfg.Bot.Token = strings.TrimSpace(tok)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = ModePolling
	}
	cfg.Bot.Mode = strings.ToLower(cfg.Bot.Mode)
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.SendRate <= 0 {
		cfg.Bot.SendRate = 25
	}
	if cfg.Poll.Timeout <= 0 {
		cfg.Poll.Timeout = 10 * time.Second
	}
	if cfg.Poll.SendTimeout <= 0 {
		cfg.Poll.SendTimeout = 15 * time.Second
	}
	if cfg.Poll.BackoffInitial <= 0 {
		cfg.Poll.BackoffInitial = time.Second
	}
	if cfg.Poll.BackoffMax <= 0 {
		cfg.Poll.BackoffMax = time.Minute
	}
	if cfg.Poll.BackoffFactor < 1 {
		cfg.Poll.BackoffFactor = 2
	}
	if cfg.Menu.Audience == "" {
		cfg.Menu.Audience = "level-devil"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.Limit <= 0 {
		cfg.Redis.Limit = 20
	}
	if cfg.Redis.Window <= 0 {
		cfg.Redis.Window = time.Minute
	}
}

// Validate checks what must hold before the bot starts.
func (c *Config) Validate() error {
	switch c.Bot.Mode {
	case ModePolling:
		if c.Bot.Token == "" {
			return errors.New("bot.token is required (set BOT_TOKEN or bot.token_keyring)")
		}
	case ModeConsole:
	default:
		return fmt.Errorf("bot.mode %q: want %q or %q", c.Bot.Mode, ModePolling, ModeConsole)
	}
	// The platform only opens web apps over https; the console transport
	// never reaches it, so local http URLs are fine there.
	webAppHTTPS := c.Bot.Mode != ModeConsole
	if err := checkURL("menu.game_url", c.Menu.GameURL, true, webAppHTTPS); err != nil {
		return err
	}
	if err := checkURL("menu.stats_url", c.Menu.StatsURL, false, false); err != nil {
		return err
	}
	if err := checkURL("menu.photo_url", c.Menu.PhotoURL, false, false); err != nil {
		return err
	}
	if c.Poll.BackoffMax < c.Poll.BackoffInitial {
		return fmt.Errorf("poll.backoff_max (%s) is below poll.backoff_initial (%s)", c.Poll.BackoffMax, c.Poll.BackoffInitial)
	}
	for i, cmd := range c.Commands {
		if strings.TrimSpace(cmd.Name) == "" {
			return fmt.Errorf("commands[%d]: name is required", i)
		}
		if strings.TrimSpace(cmd.Text) == "" && cmd.Photo == "" {
			return fmt.Errorf("commands[%d] %q: text or photo is required", i, cmd.Name)
		}
		for r, row := range cmd.Buttons {
			for b, btn := range row {
				field := fmt.Sprintf("commands[%d].buttons[%d][%d]", i, r, b)
				if err := btn.validate(field, webAppHTTPS); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b ButtonConfig) validate(field string, webAppHTTPS bool) error {
	if strings.TrimSpace(b.Label) == "" {
		return fmt.Errorf("%s: label is required", field)
	}
	actions := 0
	if b.WebApp != "" {
		actions++
	}
	if b.Share != nil {
		actions++
	}
	if b.Link != "" {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("%s %q: set exactly one of web_app, share, link", field, b.Label)
	}
	if b.WebApp != "" {
		return checkURL(field+".web_app", b.WebApp, true, webAppHTTPS)
	}
	if b.Link != "" {
		return checkURL(field+".link", b.Link, true, false)
	}
	return nil
}

func checkURL(field, raw string, required, httpsOnly bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%s: %q is not an absolute http(s) URL", field, raw)
	}
	if httpsOnly && u.Scheme != "https" {
		return fmt.Errorf("%s: %q must use https", field, raw)
	}
	return nil
}
