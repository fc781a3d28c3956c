// Package codec provides streaming decompression for backup data fetched
// from the object store. The node agent compresses SSTables on upload;
// restores decompress the stream incrementally instead of buffering whole
// objects.
package codec

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"cassandra-cluster-backup/internal/errors"
)

// Algorithm identifies a compression codec
type Algorithm string

const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
)

// DefaultAlgorithm is what the node agent writes.
const DefaultAlgorithm = AlgorithmSnappy

// Parse validates an algorithm name.
func Parse(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmNone, AlgorithmSnappy, AlgorithmZstd, AlgorithmLZ4:
		return Algorithm(name), nil
	case "":
		return DefaultAlgorithm, nil
	default:
		return "", errors.NewValidation(fmt.Sprintf("unsupported compression algorithm: %s", name), nil)
	}
}

// Reader is a streaming decompressor over an underlying source.
type Reader struct {
	io.Reader
	close func()
}

// Close releases decoder resources. It does not close the underlying source.
func (r *Reader) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}

// NewReader wraps src in a streaming decompressor for the algorithm.
func NewReader(algorithm Algorithm, src io.Reader) (*Reader, error) {
	switch algorithm {
	case AlgorithmNone:
		return &Reader{Reader: src}, nil

	case AlgorithmSnappy:
		return &Reader{Reader: snappy.NewReader(src)}, nil

	case AlgorithmZstd:
		decoder, err := zstd.NewReader(src)
		if err != nil {
			return nil, errors.NewValidation("failed to create zstd decoder", err)
		}
		return &Reader{Reader: decoder, close: decoder.Close}, nil

	case AlgorithmLZ4:
		return &Reader{Reader: lz4.NewReader(src)}, nil

	default:
		return nil, errors.NewValidation(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}
