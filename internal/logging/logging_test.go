package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		encoding string
		verbose  bool
		want     zapcore.Level
	}{
		{name: "info json", level: "info", encoding: "json", want: zapcore.InfoLevel},
		{name: "warn console", level: "warn", encoding: "console", want: zapcore.WarnLevel},
		{name: "verbose overrides", level: "error", verbose: true, want: zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.encoding, tt.verbose)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", "json", false)
	require.Error(t, err)
}
