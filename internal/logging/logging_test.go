// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/unitrad/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetup_TextToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Setup(types.LoggingConfig{Level: "WARN"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "region", "gifu")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "region=gifu")
}

func TestSetup_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "unitrad.log")
	logger, closer, err := Setup(types.LoggingConfig{Level: "DEBUG", Format: "json", File: path}, nil)
	require.NoError(t, err)

	logger.Debug("poll", "version", 2)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "poll", entry["msg"])
	assert.Equal(t, 2.0, entry["version"])
}
