package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Algorithm
		wantErr bool
	}{
		{name: "empty defaults to snappy", input: "", want: AlgorithmSnappy},
		{name: "snappy", input: "snappy", want: AlgorithmSnappy},
		{name: "zstd", input: "zstd", want: AlgorithmZstd},
		{name: "lz4", input: "lz4", want: AlgorithmLZ4},
		{name: "none", input: "none", want: AlgorithmNone},
		{name: "unknown", input: "lzop", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewReader_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("sstable-data-"), 1024)

	compress := map[Algorithm]func([]byte) []byte{
		AlgorithmNone: func(data []byte) []byte { return data },
		AlgorithmSnappy: func(data []byte) []byte {
			var buf bytes.Buffer
			w := snappy.NewBufferedWriter(&buf)
			_, err := w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
		AlgorithmZstd: func(data []byte) []byte {
			var buf bytes.Buffer
			w, err := zstd.NewWriter(&buf)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
		AlgorithmLZ4: func(data []byte) []byte {
			var buf bytes.Buffer
			w := lz4.NewWriter(&buf)
			_, err := w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
	}

	for algorithm, fn := range compress {
		t.Run(string(algorithm), func(t *testing.T) {
			reader, err := NewReader(algorithm, bytes.NewReader(fn(payload)))
			require.NoError(t, err)
			defer reader.Close()

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestNewReader_UnknownAlgorithm(t *testing.T) {
	_, err := NewReader("lzop", bytes.NewReader(nil))
	assert.Error(t, err)
}
