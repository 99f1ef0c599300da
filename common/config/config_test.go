package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "society",
		Password: "secret",
		Database: "societysync",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5433 user=society password=secret dbname=societysync sslmode=disable", cfg.GetDSN())

	cfg.URL = "postgres://u:p@h:5432/d?sslmode=require"
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=require", cfg.GetDSN())
}
