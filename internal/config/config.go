package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Path is the location of the optional YAML config file.
type Path string

var (
	errBackendURL = errors.New("backend_url must be an absolute http(s) url")
	errSignInPath = errors.New("signin_path must start with /")
)

// Config is assembled once at start and must not be mutated afterwards.
type Config struct {
	ListenAddr string   `yaml:"listen_addr"`
	PublicURL  string   `yaml:"public_url"`
	BackendURL string   `yaml:"backend_url"`
	SignInPath string   `yaml:"signin_path"`
	Session    Session  `yaml:"session"`
	Proxy      Proxy    `yaml:"proxy"`
	Database   Database `yaml:"database"`
	OAuth      OAuth    `yaml:"oauth"`
	SAML       SAML     `yaml:"saml"`
	Log        Log      `yaml:"log"`
}

type Session struct {
	// Secret signs service tokens. Empty disables minting.
	Secret        string        `yaml:"secret"`
	CookieName    string        `yaml:"cookie_name"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	Lifetime      time.Duration `yaml:"lifetime"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
}

type Proxy struct {
	Prefix       string `yaml:"prefix"`
	RequireToken bool   `yaml:"require_token"`
}

type Database struct {
	DSN       string `yaml:"dsn"`
	UsersFile string `yaml:"users_file"`
}

type OAuth struct {
	Google OAuthClient `yaml:"google"`
	GitHub OAuthClient `yaml:"github"`
}

type OAuthClient struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type Log struct {
	Development bool `yaml:"development"`
}

// New is the fx constructor. An empty path falls back to CONFIG_FILE.
func New(path Path) (*Config, error) {
	p := string(path)
	if p == "" {
		p = os.Getenv("CONFIG_FILE")
	}
	return Load(p, os.LookupEnv)
}

// Load applies defaults, then the YAML file (if any), then environment
// overrides read through lookup.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := readYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		ListenAddr: ":3000",
		PublicURL:  "http://localhost:3000",
		BackendURL: "http://localhost:8000",
		SignInPath: "/signin",
		Session: Session{
			CookieName: "roadmap_session",
			Lifetime:   30 * 24 * time.Hour,
		},
		Proxy: Proxy{
			Prefix: "/api/backend",
		},
		Database: Database{
			UsersFile: "data/users.json",
		},
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errBackendURL, c.BackendURL)
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	if !strings.HasPrefix(c.SignInPath, "/") {
		return fmt.Errorf("%w: %q", errSignInPath, c.SignInPath)
	}
	c.Proxy.Prefix = "/" + strings.Trim(c.Proxy.Prefix, "/")

	if c.Session.Lifetime <= 0 {
		c.Session.Lifetime = 30 * 24 * time.Hour
	}
	return nil
}
