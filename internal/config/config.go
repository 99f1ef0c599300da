package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	commoncfg "societysync/common/config"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config societysync（HTTP API + CLI）配置
// 所有字段均通过显式 envconfig 标签读取，未嵌套前缀
type Config struct {
	HTTP struct {
		Addr        string   `envconfig:"HTTP_ADDR" default:":8080"`
		CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		MaxBodySize int64    `envconfig:"HTTP_MAX_BODY_BYTES" default:"8388608"`
	}
	Database    commoncfg.DatabaseConfig
	AutoMigrate bool `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	Redis       commoncfg.RedisConfig
	Log         struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"json"`
	}
	Auth struct {
		JWTSecret     string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
		TokenTTL      time.Duration `envconfig:"JWT_TTL" default:"12h"`
		AdminPassword string        `envconfig:"ADMIN_PASSWORD" default:"admin123"`
		AdminEmail    string        `envconfig:"ADMIN_EMAIL" default:"admin@societysync.com"`
	}
	Society struct {
		Timezone          string        `envconfig:"TIMEZONE" default:"Asia/Kolkata"`
		Blocks            []string      `envconfig:"FLAT_BLOCKS" default:"A,B,C,D"`
		Floors            int           `envconfig:"FLAT_FLOORS" default:"5"`
		UnitsPerFloor     int           `envconfig:"FLAT_UNITS_PER_FLOOR" default:"5"`
		SweepCron         string        `envconfig:"BILLING_SWEEP_CRON" default:"@hourly"`
		OccupancyCacheTTL time.Duration `envconfig:"OCCUPANCY_CACHE_TTL" default:"5m"`
		PhotoMaxBytes     int           `envconfig:"VISITOR_PHOTO_MAX_BYTES" default:"2097152"`
	}
	Notify NotifyConfig
}

// NotifyConfig 外部通知通道配置（全部默认关闭）
type NotifyConfig struct {
	Stream struct {
		Enabled bool   `envconfig:"NOTIFY_STREAM_ENABLED" default:"false"`
		Name    string `envconfig:"NOTIFY_STREAM_NAME" default:"society:notifications"`
		MaxLen  int64  `envconfig:"NOTIFY_STREAM_MAXLEN" default:"10000"`
	}
	MQTT struct {
		Enabled     bool   `envconfig:"MQTT_ENABLED" default:"false"`
		TopicPrefix string `envconfig:"MQTT_TOPIC_PREFIX" default:"society"`
		commoncfg.MQTTConfig
	}
	Twilio struct {
		Enabled    bool   `envconfig:"TWILIO_ENABLED" default:"false"`
		AccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
		AuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
		FromPhone  string `envconfig:"TWILIO_FROM_PHONE"`
	}
	SendGrid struct {
		Enabled   bool   `envconfig:"SENDGRID_ENABLED" default:"false"`
		APIKey    string `envconfig:"SENDGRID_API_KEY"`
		FromEmail string `envconfig:"SENDGRID_FROM_EMAIL" default:"no-reply@societysync.com"`
		FromName  string `envconfig:"SENDGRID_FROM_NAME" default:"SocietySync"`
	}
	Webhook struct {
		Enabled bool          `envconfig:"WEBHOOK_ENABLED" default:"false"`
		URL     string        `envconfig:"WEBHOOK_URL"`
		Secret  string        `envconfig:"WEBHOOK_SECRET"`
		Timeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s"`
		Retries int           `envconfig:"WEBHOOK_RETRIES" default:"2"`
	}
}

// Load 读取 .env（可选）与环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location 返回社区所在时区，用于 "今天" 的判定（逾期扫描、付款日期）
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Society.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if len(c.Society.Blocks) == 0 || c.Society.Floors <= 0 || c.Society.UnitsPerFloor <= 0 {
		return fmt.Errorf("invalid flat layout: blocks=%v floors=%d units=%d",
			c.Society.Blocks, c.Society.Floors, c.Society.UnitsPerFloor)
	}
	if _, err := time.LoadLocation(c.Society.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Society.Timezone, err)
	}
	if c.Notify.Twilio.Enabled && (c.Notify.Twilio.AccountSID == "" || c.Notify.Twilio.AuthToken == "" || c.Notify.Twilio.FromPhone == "") {
		return fmt.Errorf("TWILIO_ENABLED requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_PHONE")
	}
	if c.Notify.SendGrid.Enabled && c.Notify.SendGrid.APIKey == "" {
		return fmt.Errorf("SENDGRID_ENABLED requires SENDGRID_API_KEY")
	}
	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		return fmt.Errorf("WEBHOOK_ENABLED requires WEBHOOK_URL")
	}
	return nil
}
