// Package predictorpb defines the Predictor gRPC service's wire messages
// and service descriptor. It mirrors what protoc-gen-go-grpc would emit
// from api/proto/predictor.proto, hand-written because this repo has no
// protoc toolchain available at build time. Messages are plain structs
// reusing internal/tensor.Tensor for the input/output payload, carried
// over the wire by the JSON codec registered in grpcapi (see codec.go).
package predictorpb

import "github.com/universal-ai-tools/predictord/internal/tensor"

// PredictRequest is the Predict RPC's request message.
type PredictRequest struct {
	ModelName string        `json:"model_name"`
	Input     tensor.Tensor `json:"input"`
}

// PredictResponse is the Predict RPC's response message.
type PredictResponse struct {
	PredictionID string        `json:"prediction_id"`
	ModelName    string        `json:"model_name"`
	Output       tensor.Tensor `json:"output"`
}

// ListModelsRequest is the ListModels RPC's (empty) request message.
type ListModelsRequest struct{}

// ModelStatus describes one configured model's readiness.
type ModelStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// ListModelsResponse is the ListModels RPC's response message.
type ListModelsResponse struct {
	Models []ModelStatus `json:"models"`
}

// ReadyRequest is the Ready RPC's (empty) request message.
type ReadyRequest struct{}

// ReadyResponse is the Ready RPC's response message.
type ReadyResponse struct {
	Healthy bool `json:"healthy"`
}
