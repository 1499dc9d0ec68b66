package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  dbname: test.db
jwt:
  secret: short
  expire_hours: 2
storage:
  type: minio
mastery:
  schedule: "@hourly"
  activity_saturation: 10
`

func writeConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "@hourly", cfg.Mastery.Schedule)
	assert.Equal(t, 10.0, cfg.Mastery.ActivitySaturation)
	assert.Equal(t, 0.5, cfg.Mastery.BaseProficiency)
	assert.Equal(t, 0.4, cfg.Mastery.ActivityWeight)
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	body := `
server:
  mode: release
database:
  driver: sqlite
jwt:
  secret: too-short
`
	_, err := LoadConfig(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestValidateRejectsUnknownDriverAndBadMastery(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "oracle"},
		Mastery:  MasteryConfig{BaseProficiency: 0.5, ActivitySaturation: 15, ActivityWeight: 0.4, AssignmentWeight: 0.3, QuestionWeight: 0.3},
	}
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	assert.NoError(t, cfg.Validate())

	cfg.Mastery.BaseProficiency = 1.5
	assert.Error(t, cfg.Validate())

	cfg.Mastery.BaseProficiency = 0.5
	cfg.Mastery.QuestionWeight = 0
	assert.Error(t, cfg.Validate())
}
