package config

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	BaseURL string `yaml:"base_url"`

	HTTP struct {
		Address string `yaml:"address"`
	} `yaml:"http"`

	Database DatabaseConfig `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
		Format string `yaml:"format"` // "text" | "json"
	} `yaml:"logging"`

	Security struct {
		JWTSecret string `yaml:"jwt_secret"`
		// Login attempts allowed per client IP per minute.
		LoginRateLimit int `yaml:"login_rate_limit"`
	} `yaml:"security"`

	Session SessionConfig `yaml:"session"`

	Balance struct {
		Initial int64 `yaml:"initial"`
	} `yaml:"balance"`

	Catalog struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"catalog"`

	Billing struct {
		RefreshCron string `yaml:"refresh_cron"`
		// Serve the placeholder datasets instead of reading Postgres.
		Fixtures bool `yaml:"fixtures"`
	} `yaml:"billing"`
}

type SessionConfig struct {
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"` // e.g. "disable" | "require"
}

const DefaultInitialBalance int64 = 15000000

func (c *Config) Defaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Database.Host == "" {
		c.Database.Host = "db"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "registrydash"
	}
	if c.Database.Name == "" {
		c.Database.Name = "registrydash"
	}
	if c.Database.Password == "" {
		c.Database.Password = "password"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Security.JWTSecret == "" {
		c.Security.JWTSecret = "change-me"
	}
	if c.Security.LoginRateLimit == 0 {
		c.Security.LoginRateLimit = 10
	}
	if c.Session.AccessTTL == 0 {
		c.Session.AccessTTL = 15 * time.Minute
	}
	if c.Session.RefreshTTL == 0 {
		c.Session.RefreshTTL = 72 * time.Hour
	}
	if c.Balance.Initial == 0 {
		c.Balance.Initial = DefaultInitialBalance
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = 10 * time.Second
	}
	if c.Billing.RefreshCron == "" {
		c.Billing.RefreshCron = "@every 5m"
	}
}

func (c *Config) Validate() error {
	var errs []string
	// DB must have either URL or (Host, User, Name)
	if c.Database.URL == "" {
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			errs = append(errs, "database.url or database.{host,user,name} must be set")
		}
	}
	if c.Session.AccessTTL < 0 || c.Session.RefreshTTL < 0 {
		errs = append(errs, "session ttls must be positive")
	}
	if c.Catalog.BaseURL != "" {
		if u, err := url.Parse(c.Catalog.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "catalog.base_url must be an absolute URL")
		}
	}
	if _, err := cron.ParseStandard(c.Billing.RefreshCron); err != nil {
		errs = append(errs, "billing.refresh_cron: "+err.Error())
	}
	if len(errs) > 0 {
		return errors.New(joinErrs(errs))
	}
	return nil
}

func joinErrs(es []string) string {
	if len(es) == 1 {
		return es[0]
	}
	out := es[0]
	for i := 1; i < len(es); i++ {
		out += "; " + es[i]
	}
	return out
}

// AppURL returns a postgres connection URL for the application DB.
func (d *DatabaseConfig) AppURL() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return "", errors.New("database config incomplete: need host, user, name or set url")
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
