package main

import (
	"testing"
	"time"

	"pharmadb-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStore(t *testing.T) {
	cfg := config.Default()
	cfg.Server.SessionTTL = "10m"

	store, ttl, err := newSessionStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Len())

	cfg.Server.SessionTTL = "0"
	_, ttl, err = newSessionStore(cfg)
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestNewSessionStore_BadTTL(t *testing.T) {
	cfg := config.Default()
	cfg.Server.SessionTTL = "half an hour"

	store, _, err := newSessionStore(cfg)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestOpenDataSource_DefaultsToCSV(t *testing.T) {
	src, err := openDataSource(config.Default())
	require.NoError(t, err)
	defer src.Close()
	assert.NotNil(t, src)
}
