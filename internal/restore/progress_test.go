package restore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KB"},
		{12897484, "12.3MB"},
		{102760448, "98.0MB"},
		{5 * 1024 * 1024 * 1024, "5.0GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanSize(tt.size))
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(200*1024*1024, &buf)

	prog.add(100 * 1024 * 1024)
	assert.Contains(t, buf.String(), "100.0MB / 200.0MB (50.00%)")

	prog.add(100 * 1024 * 1024)
	prog.finish()
	assert.Contains(t, buf.String(), "200.0MB / 200.0MB (100.00%)")
}

func TestProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(0, &buf)
	prog.add(0)
	assert.Contains(t, buf.String(), "(100.00%)")
}
