package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-web-api/pkg/config"
)

func TestDSNQuotesAwkwardValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "sekolah",
		Password: `p@ss word'\`,
		Name:     "sma_web",
		SSLMode:  "disable",
	})

	assert.Equal(t, `host=db port=5432 user=sekolah password='p@ss word\'\\' dbname=sma_web sslmode=disable application_name=sma-web-api connect_timeout=5`, dsn)
}

func TestDSNSkipsEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, Name: "sma_web"})

	assert.NotContains(t, dsn, "password=")
	assert.NotContains(t, dsn, "sslmode=")
}

func TestPingWithRetry(t *testing.T) {
	calls := 0
	err := pingWithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = pingWithRetry(context.Background(), func(context.Context) error {
		calls++
		return errors.New("connection refused")
	}, 2, 0)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
