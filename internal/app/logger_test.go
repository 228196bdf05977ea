package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	tests := []struct {
		level   string
		infoOn  bool
		debugOn bool
	}{
		{level: "debug", infoOn: true, debugOn: true},
		{level: "info", infoOn: true, debugOn: false},
		{level: "warn", infoOn: false, debugOn: false},
		{level: "unknown", infoOn: true, debugOn: false},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			logger := NewLogger(&Config{LogLevel: tc.level})
			ctx := context.Background()
			require.Equal(t, tc.infoOn, logger.Enabled(ctx, slog.LevelInfo))
			require.Equal(t, tc.debugOn, logger.Enabled(ctx, slog.LevelDebug))
			require.True(t, logger.Enabled(ctx, slog.LevelError))
		})
	}
}

func TestNewLoggerNilConfig(t *testing.T) {
	logger := NewLogger(nil)
	require.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
