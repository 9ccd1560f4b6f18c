package config

import (
	"fmt"
	"strconv"
	"time"
)

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var err error
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = b
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = d
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("PUBLIC_URL", &cfg.PublicURL)
	str("BACKEND_URL", &cfg.BackendURL)
	str("SIGNIN_PATH", &cfg.SignInPath)

	str("SESSION_SECRET", &cfg.Session.Secret)
	boolean("SESSION_COOKIE_SECURE", &cfg.Session.CookieSecure)
	duration("SESSION_IDLE_TIMEOUT", &cfg.Session.IdleTimeout)
	str("REDIS_ADDR", &cfg.Session.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Session.RedisPassword)

	boolean("PROXY_REQUIRE_TOKEN", &cfg.Proxy.RequireToken)

	str("DATABASE_DSN", &cfg.Database.DSN)
	str("USERS_FILE", &cfg.Database.UsersFile)

	str("GOOGLE_CLIENT_ID", &cfg.OAuth.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &cfg.OAuth.Google.ClientSecret)
	str("GITHUB_CLIENT_ID", &cfg.OAuth.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &cfg.OAuth.GitHub.ClientSecret)

	str("SAML_IDP_METADATA_URL", &cfg.SAML.IDPMetadataURL)
	str("SAML_IDP_METADATA_FILE", &cfg.SAML.IDPMetadataFile)

	boolean("LOG_DEVELOPMENT", &cfg.Log.Development)

	return err
}
