package config

import (
	"fmt"
	"time"
)

// DatabaseConfig 数据库配置
// URL 非空时优先使用（兼容 DATABASE_URL 形式的连接串）
type DatabaseConfig struct {
	URL      string `envconfig:"DATABASE_URL"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Database string `envconfig:"DB_NAME" default:"societysync"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
	MaxIdle  int    `envconfig:"DB_MAX_IDLE" default:"5"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	Timeout  time.Duration `envconfig:"REDIS_TIMEOUT" default:"3s"`
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string `envconfig:"MQTT_BROKER" default:"tcp://localhost:1883"`
	ClientID string `envconfig:"MQTT_CLIENT_ID" default:"societysync"`
	Username string `envconfig:"MQTT_USERNAME"`
	Password string `envconfig:"MQTT_PASSWORD"`
	QoS      byte   `envconfig:"MQTT_QOS" default:"1"`
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
