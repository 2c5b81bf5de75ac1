package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-api/internal/auth"
)

func TestLoad_DefaultsWithSecret(t *testing.T) {
	t.Setenv("AUTHAPI_AUTH_JWTSECRET", "s3cret")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, time.Hour, cfg.RefreshTTL())

	opts := cfg.TokenOptions()
	assert.Equal(t, []byte("s3cret"), opts.Secret)
	assert.Equal(t, []auth.TokenLocation{auth.LocationCookies, auth.LocationHeaders}, opts.Locations)
	assert.Equal(t, auth.DefaultAccessCookie, opts.AccessCookie)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("AUTHAPI_AUTH_JWTSECRET", "")

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTHAPI_AUTH_JWTSECRET", "s3cret")
	t.Setenv("AUTHAPI_AUTH_ACCESSTTLMINUTES", "5")
	t.Setenv("AUTHAPI_AUTH_REFRESHTTLMINUTES", "120")
	t.Setenv("AUTHAPI_AUTH_TOKENLOCATIONS", "headers")
	t.Setenv("AUTHAPI_DATABASE_DRIVER", "postgres")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 2*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, []auth.TokenLocation{auth.LocationHeaders}, cfg.TokenOptions().Locations)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoad_FlagsAndConfigFile(t *testing.T) {
	t.Setenv("AUTHAPI_AUTH_JWTSECRET", "")

	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwtsecret: from-file\n  jwtalgorithm: HS512\n"), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--addr", "127.0.0.1:9999", "--db-dsn", "/tmp/x.db"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "HS512", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.Database.DSN)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Auth.JWTSecret = "k"
		c.Auth.JWTAlgorithm = "HS256"
		c.Auth.AccessTTLMinutes = 15
		c.Auth.RefreshTTLMinutes = 60
		c.Auth.TokenLocations = []string{"cookies"}
		c.Database.Driver = "sqlite"
		c.Database.DSN = "data/auth.db"
		c.Log.Level = "info"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"algorithm":       func(c *Config) { c.Auth.JWTAlgorithm = "none" },
		"access ttl":      func(c *Config) { c.Auth.AccessTTLMinutes = 0 },
		"refresh shorter": func(c *Config) { c.Auth.RefreshTTLMinutes = 5 },
		"no locations":    func(c *Config) { c.Auth.TokenLocations = nil },
		"bad location":    func(c *Config) { c.Auth.TokenLocations = []string{"query"} },
		"driver":          func(c *Config) { c.Database.Driver = "mysql" },
		"dsn":             func(c *Config) { c.Database.DSN = "" },
		"log level":       func(c *Config) { c.Log.Level = "loud" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadStore_WithoutSecret(t *testing.T) {
	t.Setenv("AUTHAPI_AUTH_JWTSECRET", "")
	t.Setenv("AUTHAPI_DATABASE_DSN", "/tmp/users.db")

	cfg, err := LoadStore(nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/users.db", cfg.Database.DSN)

	_, err = Load(nil)
	assert.Error(t, err)
}

func TestLoadStore_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("AUTHAPI_DATABASE_DRIVER", "mysql")

	_, err := LoadStore(nil)
	assert.Error(t, err)
}
