package core

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Build                     string
		SecretKey                 string
		SessionTTL                time.Duration
		PasswordResetTimeoutDelta time.Duration
		FrontendBaseURL           string
		DefaultFromEmail          string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Logger   LoggerConfig
	}

	ServerConfig struct {
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Driver     string // postgres (lib/pq) | pgx
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	StorageConfig struct {
		Backend     string // local | b2
		Root        string
		B2AccountID string
		B2AppKey    string
		B2Bucket    string
	}

	LoggerConfig struct {
		Level        string
		RollbarToken string
		SentryDSN    string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig reads the configuration from the environment, optionally seeded by config/.env.<env>.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := viper.New()
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, env)

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		SecretKey:                 v.GetString("secretKey"),
		SessionTTL:                v.GetDuration("sessionTTL"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Driver:     v.GetString("database.driver"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			Backend:     v.GetString("storage.backend"),
			Root:        v.GetString("storage.root"),
			B2AccountID: v.GetString("storage.b2AccountID"),
			B2AppKey:    v.GetString("storage.b2AppKey"),
			B2Bucket:    v.GetString("storage.b2Bucket"),
		},
		Logger: LoggerConfig{
			Level:        v.GetString("logger.level"),
			RollbarToken: v.GetString("logger.rollbarToken"),
			SentryDSN:    v.GetString("logger.sentryDSN"),
		},
	}
	if err := conf.Check(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("appName", "Classwork")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "") // no default: must come from the environment
	v.SetDefault("sessionTTL", time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "classwork")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.root", "uploads")
	v.SetDefault("storage.b2AccountID", "")
	v.SetDefault("storage.b2AppKey", "")
	v.SetDefault("storage.b2Bucket", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.rollbarToken", "")
	v.SetDefault("logger.sentryDSN", "")
}

// Check verifies the settings the process cannot safely run without.
// A missing secretKey is fatal: sessions are never signed with a built-in default.
func (c *Config) Check() error {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		minLen(c.SecretKey, 32, "secretKey"),
		positive(c.SessionTTL, "sessionTTL"),
		oneOf(c.Database.Driver, "database.driver", "postgres", "pgx"),
		oneOf(c.Storage.Backend, "storage.backend", "local", "b2"),
	).Check()
	if err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if c.Storage.Backend == "b2" {
		err = vala.BeginValidation().Validate(
			vala.StringNotEmpty(c.Storage.B2AccountID, "storage.b2AccountID"),
			vala.StringNotEmpty(c.Storage.B2AppKey, "storage.b2AppKey"),
			vala.StringNotEmpty(c.Storage.B2Bucket, "storage.b2Bucket"),
		).Check()
		if err != nil {
			return errors.Wrap(err, "invalid config")
		}
	}
	return nil
}

func minLen(s string, n int, name string) vala.Checker {
	return func() (bool, string) {
		return len(s) >= n, fmt.Sprintf("parameter must be at least %d characters long: %s", n, name)
	}
}

func positive(d time.Duration, name string) vala.Checker {
	return func() (bool, string) {
		return d > 0, "parameter must be a positive duration: " + name
	}
}

func oneOf(val, name string, allowed ...string) vala.Checker {
	return func() (bool, string) {
		for _, a := range allowed {
			if val == a {
				return true, ""
			}
		}
		return false, fmt.Sprintf("parameter must be one of %v: %s", allowed, name)
	}
}
