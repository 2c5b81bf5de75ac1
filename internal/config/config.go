package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"auth-api/internal/auth"
)

// Config holds application level configuration aggregated from env/config files.
// It is built once by Load and treated as read-only afterwards.
type Config struct {
	Server struct {
		Addr         string
		Mode         string
		ClientOrigin string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Auth struct {
		JWTSecret         string
		JWTAlgorithm      string
		AccessTTLMinutes  int
		RefreshTTLMinutes int
		TokenLocations    []string
		Secure            bool
		BcryptCost        int
	}
	Log struct {
		Level string
	}
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"addr":      "server.addr",
	"db-driver": "database.driver",
	"db-dsn":    "database.dsn",
	"log-level": "log.level",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file")
	fs.String("addr", "", "listen address")
	fs.String("db-driver", "", "database driver (sqlite or postgres)")
	fs.String("db-dsn", "", "database path or connection string")
	fs.String("log-level", "", "log level")
}

// Load reads configuration from defaults, an optional config file, .env,
// environment variables and, when fs is not nil, parsed command line flags.
// The result is checked with Validate.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := read(fs)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadStore reads configuration like Load but only checks the settings
// needed to open the credential store.
func LoadStore(fs *pflag.FlagSet) (Config, error) {
	cfg, err := read(fs)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func read(fs *pflag.FlagSet) (Config, error) {
	// .env never overrides variables that are already set
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTHAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.clientorigin", "http://localhost:3000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/auth.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.jwtalgorithm", "HS256")
	v.SetDefault("auth.accessttlminutes", 15)
	v.SetDefault("auth.refreshttlminutes", 60)
	v.SetDefault("auth.tokenlocations", []string{string(auth.LocationCookies), string(auth.LocationHeaders)})
	v.SetDefault("auth.secure", false)
	v.SetDefault("auth.bcryptcost", 0)
	v.SetDefault("log.level", "info")

	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional file
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can start the server.
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth jwt secret is required")
	}
	if !auth.SupportedAlgorithm(c.Auth.JWTAlgorithm) {
		return fmt.Errorf("unsupported jwt algorithm %q", c.Auth.JWTAlgorithm)
	}
	if c.Auth.AccessTTLMinutes <= 0 || c.Auth.RefreshTTLMinutes <= 0 {
		return errors.New("token ttls must be positive")
	}
	if c.Auth.RefreshTTLMinutes < c.Auth.AccessTTLMinutes {
		return errors.New("refresh ttl must not be shorter than access ttl")
	}
	if len(c.Auth.TokenLocations) == 0 {
		return errors.New("at least one token location is required")
	}
	for _, loc := range c.Auth.TokenLocations {
		switch auth.TokenLocation(strings.TrimSpace(loc)) {
		case auth.LocationCookies, auth.LocationHeaders:
		default:
			return fmt.Errorf("unknown token location %q", loc)
		}
	}
	return nil
}

// ValidateStore checks the database and logging settings only.
func (c Config) ValidateStore() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn is required")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.Auth.AccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTTLMinutes) * time.Minute
}

// TokenOptions derives the token service settings.
func (c Config) TokenOptions() auth.Options {
	locations := make([]auth.TokenLocation, 0, len(c.Auth.TokenLocations))
	for _, loc := range c.Auth.TokenLocations {
		locations = append(locations, auth.TokenLocation(strings.TrimSpace(loc)))
	}
	return auth.Options{
		Algorithm:     c.Auth.JWTAlgorithm,
		Secret:        []byte(c.Auth.JWTSecret),
		AccessCookie:  auth.DefaultAccessCookie,
		RefreshCookie: auth.DefaultRefreshCookie,
		Locations:     locations,
		Secure:        c.Auth.Secure,
	}
}
