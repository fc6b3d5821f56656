package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig_AppliesSettings(t *testing.T) {
	cfg, err := PoolConfig(Config{
		URL:             "postgres://u:p@localhost:5432/docpipe",
		MinConns:        2,
		MaxConns:        12,
		MaxConnIdleTime: time.Minute,
		MaxConnLifetime: time.Hour,
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, int32(12), cfg.MaxConns)
	assert.Equal(t, time.Minute, cfg.MaxConnIdleTime)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
	assert.Equal(t, "docpipe", cfg.ConnConfig.Database)
}

func TestPoolConfig_KeepsDefaults(t *testing.T) {
	cfg, err := PoolConfig(Config{URL: "postgres://u:p@localhost:5432/docpipe?pool_max_conns=7"})

	require.NoError(t, err)
	assert.Equal(t, int32(7), cfg.MaxConns)
}

func TestPoolConfig_InvalidURL(t *testing.T) {
	_, err := PoolConfig(Config{URL: "postgres://%zz"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database config")
}
