package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-renewal/internal/config"
)

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	t.Cleanup(func() { version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit })

	version = "1.2.3"
	buildTime = "2026-01-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)

	for _, want := range []string{
		"MCP PDF Renewal",
		"Version: 1.2.3",
		"Build Time: 2026-01-01_10:30:00",
		"Git Commit: abc123",
		"Built with: go",
	} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestIsVersionRequest(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"--version"}, true},
		{[]string{"-version"}, true},
		{[]string{"--dir", "/tmp", "-v"}, true},
		{[]string{"--dir", "/tmp"}, false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isVersionRequest(tt.args), "%v", tt.args)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		level     string
		wantLevel log.Level
	}{
		{name: "stdio info is quiet", mode: config.ModeStdio, level: "info", wantLevel: log.WarnLevel},
		{name: "stdio debug", mode: config.ModeStdio, level: "debug", wantLevel: log.DebugLevel},
		{name: "server info", mode: config.ModeServer, level: "info", wantLevel: log.InfoLevel},
		{name: "server error", mode: config.ModeServer, level: "error", wantLevel: log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&config.Config{Mode: tt.mode, LogLevel: tt.level}, &buf)
			assert.Equal(t, tt.wantLevel, logger.Level)

			logger.Error().Msg("visible")
			assert.Contains(t, buf.String(), "visible")
		})
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = filepath.Join(t.TempDir(), "in")
	require.NoError(t, cfg.Validate())

	var buf bytes.Buffer
	server, err := newServer(cfg, newLogger(cfg, &buf))
	require.NoError(t, err)
	assert.NotNil(t, server)

	cfg.LabelPatterns = []string{"("}
	_, err = newServer(cfg, newLogger(cfg, &buf))
	assert.Error(t, err)
}
