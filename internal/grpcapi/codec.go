package grpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec replaces grpc-go's built-in "proto" codec with one that
// marshals predictorpb messages as JSON instead of protobuf wire format.
// This repo has no protoc toolchain to generate real descriptor-backed
// messages, so predictorpb's types are plain structs. Registering under
// the name "proto" (grpc-go's default content-subtype) makes them usable
// with unmodified grpc.Dial/grpc.NewServer calls, the same extension
// point klauspost/compress's zstd registration (compression.go) uses on
// the encoding.Compressor side.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
