package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"lecturer", "admin"}, cfg.AuthorRoles)
	assert.Equal(t, "student", cfg.StudentRole)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 2*time.Second, cfg.AuthorCooldown)
	assert.Equal(t, "@every 1m", cfg.ExpirySweepSchedule)
	assert.False(t, cfg.SeedDemo)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_RequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPass: "p", DBName: "n", DBPort: "5432"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", cfg.DSN())
}

func TestLoad_RejectsBadCooldown(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTHOR_COOLDOWN", "soon")

	_, err := Load()
	assert.Error(t, err)
}
