package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[mainConfig]
port = 9000
environment = "production"
appKey = "k"

[databaseConfig]
driver = "postgres"

[receptionConfig]
supersedeAlerts = false

[kafkaConfig]
brokers = ["localhost:9092"]
`), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, conf.MainConfig.Port)
	assert.Equal(t, "0.0.0.0", conf.MainConfig.Host)
	assert.Equal(t, 5432, conf.DatabaseConfig.Port)
	assert.Equal(t, "livedock", conf.DatabaseName)
	assert.True(t, conf.IsProduction())
	assert.Equal(t, 5.0, conf.AlertThreshold())
	assert.False(t, conf.ShouldSupersedeAlerts())
	assert.Equal(t, "*/10 * * * * *", conf.SweepSpec)
	assert.Equal(t, "livedock.process-events", conf.ProcessEventsTopic)
	assert.Equal(t, []string{"localhost:9092"}, conf.Brokers)
	assert.Equal(t, 8, conf.TimeoutSeconds)
}

func TestDefaultUsesDevelopmentThreshold(t *testing.T) {
	conf := Default()
	assert.False(t, conf.IsProduction())
	assert.Equal(t, 0.15, conf.AlertThreshold())
	assert.True(t, conf.ShouldSupersedeAlerts())
	assert.Equal(t, "mysql", conf.Driver)
	assert.Equal(t, 3306, conf.DatabaseConfig.Port)
	assert.Equal(t, 0, conf.RedisConfig.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadAllowsZeroThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[mainConfig]
environment = "production"

[receptionConfig]
alertThresholdMinutes = 0
devAlertThresholdMinutes = 0
sweepLockSeconds = 0
`), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, conf.AlertThreshold())
	assert.Equal(t, 9, conf.SweepLockSeconds)

	conf.Environment = "staging"
	assert.Equal(t, 0.0, conf.AlertThreshold())
}

func TestAlertThresholdClampsNegative(t *testing.T) {
	v := -2.0
	conf := &Config{}
	conf.DevAlertThresholdMinutes = &v
	assert.Equal(t, 0.0, conf.AlertThreshold())

	conf.Environment = EnvProduction
	assert.Equal(t, 5.0, conf.AlertThreshold())
}
