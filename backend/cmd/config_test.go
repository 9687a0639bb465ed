package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	// the package directory has no .env file
	cfg, err := loadConfig(nil, nil)

	req.NoError(err)
	req.Equal(&Config{
		APIListenAddr:    ":8080",
		WSListenAddr:     ":5000",
		LogLevel:         "info",
		AIEndpoint:       "http://localhost:5001/ai/process",
		AIHealthEndpoint: "http://localhost:5001/health",
		AITimeout:        30 * time.Second,
		MaxMessageSize:   8 << 20,
		Sanitize:         false,
	}, cfg)
}

func TestLoadConfig_Precedence(t *testing.T) {
	req := require.New(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(envFile, []byte(
		"AI_ENDPOINT=http://dotenv:5001/ai/process\n"+
			"AI_TIMEOUT=5s\n"+
			"LOG_LEVEL=warn\n"+
			"WS_LISTEN_ADDR=:7000\n",
	), 0o600))

	// Given the dotenv file, the environment and flags all set some keys
	cfg, err := loadConfig(
		[]string{"--env-file", envFile, "-w", ":9000", "--sanitize"},
		[]string{"AI_TIMEOUT=10s", "LOG_LEVEL=debug"},
	)

	// Then flags beat the environment which beats the dotenv file
	req.NoError(err)
	req.Equal("http://dotenv:5001/ai/process", cfg.AIEndpoint)
	req.Equal(10*time.Second, cfg.AITimeout)
	req.Equal("debug", cfg.LogLevel)
	req.Equal(":9000", cfg.WSListenAddr)
	req.True(cfg.Sanitize)
	req.Equal(":8080", cfg.APIListenAddr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		environ []string
	}{
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "bad endpoint", args: []string{"--ai-endpoint", "not a url"}},
		{name: "zero timeout", args: []string{"--ai-timeout", "0s"}},
		{name: "bad log level", environ: []string{"LOG_LEVEL=loud"}},
		{name: "bad duration in env", environ: []string{"AI_TIMEOUT=soon"}},
		{name: "explicit env file missing", args: []string{"--env-file", "/nonexistent/relay.env"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.args, tt.environ)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}
