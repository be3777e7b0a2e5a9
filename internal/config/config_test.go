package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "02", cfg.Numbering.DefaultPrefix)
	assert.Equal(t, 20, cfg.Numbering.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Numbering.Backoff)
	assert.Equal(t, 10*time.Second, cfg.Lifecycle.OperationTimeout)
	assert.Equal(t, "fieldreport", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SESSION_STORE", "cookie")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("ONBOARDING_TOKEN", "secret-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "cookie", cfg.Session.Store)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "secret-token", cfg.Onboarding.Token)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database:  DatabaseConfig{Driver: "mysql"},
		Session:   SessionConfig{Store: "redis"},
		Numbering: NumberingConfig{MaxAttempts: 1, InsertAttempts: 1},
	}
	assert.NoError(t, valid.Validate())

	badStore := valid
	badStore.Session.Store = "memcached"
	assert.Error(t, badStore.Validate())

	noAttempts := valid
	noAttempts.Numbering.MaxAttempts = 0
	assert.Error(t, noAttempts.Validate())

	noInserts := valid
	noInserts.Numbering.InsertAttempts = 0
	assert.Error(t, noInserts.Validate())
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (testing.T.Chdir is unavailable before Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
