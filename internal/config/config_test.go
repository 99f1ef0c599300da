package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "societysync", cfg.Database.Database)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin123", cfg.Auth.AdminPassword)
	assert.Equal(t, []string{"A", "B", "C", "D"}, cfg.Society.Blocks)
	assert.Equal(t, 5, cfg.Society.Floors)
	assert.Equal(t, 5, cfg.Society.UnitsPerFloor)
	assert.Equal(t, "@hourly", cfg.Society.SweepCron)
	assert.False(t, cfg.Notify.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.Notify.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.Notify.MQTT.QoS)
	assert.Equal(t, "society:notifications", cfg.Notify.Stream.Name)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoad_FromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("DATABASE_URL", "postgres://u:p@db:5432/society?sslmode=disable")
	os.Setenv("DB_USER", "society")
	os.Setenv("FLAT_BLOCKS", "A,B")
	os.Setenv("FLAT_FLOORS", "3")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("JWT_TTL", "30m")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://u:p@db:5432/society?sslmode=disable", cfg.Database.GetDSN())
	assert.Equal(t, "society", cfg.Database.User)
	assert.Equal(t, []string{"A", "B"}, cfg.Society.Blocks)
	assert.Equal(t, 3, cfg.Society.Floors)
	assert.True(t, cfg.Notify.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.Notify.MQTT.Broker)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	os.Clearenv()
	os.Setenv("TIMEZONE", "Mars/Olympus")
	defer os.Clearenv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEZONE")
}

func TestLoad_TwilioRequiresCredentials(t *testing.T) {
	os.Clearenv()
	os.Setenv("TWILIO_ENABLED", "true")
	defer os.Clearenv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWILIO_ACCOUNT_SID")
}
