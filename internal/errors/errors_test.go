package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      NewNotFound("snapshot missing", nil),
			expected: "NOT_FOUND: snapshot missing",
		},
		{
			name:     "with cause",
			err:      NewStorage("listing failed", fmt.Errorf("timeout")),
			expected: "STORAGE: listing failed (caused by: timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewRemoteStep("snapshot step failed", cause)
	require.ErrorIs(t, err, cause)
}

func TestError_WithContext(t *testing.T) {
	err := NewTransfer("download failed", nil).
		WithContext("key", "base/20230101000000/node1/ks1/cf1/data.db").
		WithContext("attempts", 3)

	assert.Equal(t, "base/20230101000000/node1/ks1/cf1/data.db", err.Context["key"])
	assert.Equal(t, 3, err.Context["attempts"])
}

func TestIsType(t *testing.T) {
	notFound := NewNotFound("no snapshots", nil)
	wrapped := fmt.Errorf("registry: %w", notFound)

	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(NewStorage("boom", nil)))
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))

	assert.True(t, IsManifestCorrupt(NewManifestCorrupt("bad json", nil)))
	assert.False(t, IsManifestCorrupt(notFound))
}
