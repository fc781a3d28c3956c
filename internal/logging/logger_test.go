package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
	}{
		{name: "quiet", level: LogLevelQuiet, wantDebug: false, wantInfo: false},
		{name: "normal", level: LogLevelNormal, wantDebug: false, wantInfo: true},
		{name: "verbose", level: LogLevelVerbose, wantDebug: true, wantInfo: true},
		{name: "debug", level: LogLevelDebug, wantDebug: true, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(Config{Level: tt.level, Output: &buf, Format: "text"})
			require.NoError(t, err)

			logger.Debug("debug message")
			logger.Info("info message")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug message"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info message"))
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.WithField("host", "node1").Info("snapshot created")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "snapshot created", record["msg"])
	assert.Equal(t, "node1", record["host"])
}

func TestLogClusterStep(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text"})
	require.NoError(t, err)

	logger.LogClusterStep("snapshot", 3, 0, nil)
	assert.Contains(t, buf.String(), "Cluster step completed")

	buf.Reset()
	logger.LogClusterStep("upload", 3, 0, fmt.Errorf("node2 unreachable"))
	assert.Contains(t, buf.String(), "Cluster step failed")
	assert.Contains(t, buf.String(), "node2 unreachable")
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, NewRunID())
}
