package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tbdemo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDemoConfig(t *testing.T) {
	path := writeConfig(t, `
host: things.example.com:443
username: tenant@example.com
password: secret
cmdId: 7
windowStart: "2026-08-30 10:00"
windowEnd: "2026-08-30 12:00"
`)
	cfg, err := LoadDemoConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "things.example.com:443", cfg.Host)
	assert.Equal(t, 7, cfg.CmdID)
	assert.Equal(t, "info", cfg.LogLevel)

	startTs, endTs, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, time.Duration(endTs-startTs)*time.Millisecond)
}

func TestLoadDemoConfigRequiresHost(t *testing.T) {
	path := writeConfig(t, "username: x\npassword: y\n")
	_, err := LoadDemoConfig(path)
	require.Error(t, err)
}

func TestLoadDemoConfigRequiresCredentials(t *testing.T) {
	path := writeConfig(t, "host: things.example.com\n")
	_, err := LoadDemoConfig(path)
	require.Error(t, err)
}

func TestWindowRejectsInvertedBounds(t *testing.T) {
	path := writeConfig(t, `
host: things.example.com
token: abc
windowStart: "2026-08-30 12:00"
windowEnd: "2026-08-30 10:00"
`)
	cfg, err := LoadDemoConfig(path)
	require.NoError(t, err)
	_, _, err = cfg.Window()
	require.Error(t, err)
}

func TestWindowEmptyMeansPlatformDefault(t *testing.T) {
	path := writeConfig(t, "host: things.example.com\ntoken: abc\n")
	cfg, err := LoadDemoConfig(path)
	require.NoError(t, err)
	startTs, endTs, err := cfg.Window()
	require.NoError(t, err)
	assert.Zero(t, startTs)
	assert.Zero(t, endTs)
}
