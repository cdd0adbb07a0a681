package grpcapi

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
)

// zstdCompressor implements google.golang.org/grpc/encoding.Compressor
// using klauspost/compress/zstd, letting clients opt into
// grpc.UseCompressor("zstd") for large tensor payloads. A fresh
// Encoder/Decoder is built per call rather than shared, since zstd's
// Encoder/Decoder are not safe for concurrent Reset from multiple
// in-flight RPCs.
type zstdCompressor struct{}

func (zstdCompressor) Name() string { return "zstd" }

func (zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// RegisterZstdCompressor registers the zstd compressor under "zstd" with
// grpc-go's global encoding registry. Call once at process startup before
// any gRPC server or client is constructed.
func RegisterZstdCompressor() {
	encoding.RegisterCompressor(zstdCompressor{})
}
