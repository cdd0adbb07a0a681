// Package identitybackend implements the default session.Backend shipped
// with this repo. It loads no real model artifact. The neural-network
// runtime is a collaborator concern; this backend instead reports
// configured shapes and fills the configured output shape by repeating
// the first input's values (or echoes the first input when no output
// shape is configured), optionally failing on demand for tests. Production deployments swap this for a
// real backend (ONNX Runtime, TensorFlow, etc.) behind the same
// session.Backend interface.
package identitybackend

import (
	"fmt"
	"sync"

	"github.com/universal-ai-tools/predictord/internal/session"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

// Shapes describes the input/output shapes a model path reports once
// loaded.
type Shapes struct {
	Input  [][]int64
	Output [][]int64
}

// Backend is a session.Backend that never touches disk. Each configured
// model path maps to a fixed Shapes entry; paths with no entry fall back
// to echoing the first input tensor's shape as the sole output.
type Backend struct {
	mu         sync.RWMutex
	shapes     map[string]Shapes
	failOpen   map[string]error
	failRun    map[string]error
}

// New constructs an identitybackend.Backend. shapes may be nil.
func New(shapes map[string]Shapes) *Backend {
	if shapes == nil {
		shapes = map[string]Shapes{}
	}
	return &Backend{
		shapes:   shapes,
		failOpen: map[string]error{},
		failRun:  map[string]error{},
	}
}

// FailOpen arranges for a future Open(path, ...) call to fail, used by
// tests exercising the worker's "load failed" terminal state.
func (b *Backend) FailOpen(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOpen[path] = err
}

// FailRun arranges for every future Run against path's handle to fail,
// used by tests exercising failed-inference replies.
func (b *Backend) FailRun(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRun[path] = err
}

type handle struct {
	path   string
	shapes Shapes
}

// Open implements session.Backend.
func (b *Backend) Open(path string, numThreads int) (session.Handle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err, fail := b.failOpen[path]; fail {
		return nil, err
	}
	if numThreads < 1 {
		return nil, fmt.Errorf("identitybackend: num_threads must be >= 1, got %d", numThreads)
	}

	return &handle{path: path, shapes: b.shapes[path]}, nil
}

// Describe implements session.Backend.
func (b *Backend) Describe(h session.Handle) (inputShapes, outputShapes [][]int64) {
	hd := h.(*handle)
	return hd.shapes.Input, hd.shapes.Output
}

// Run implements session.Backend. With no configured Shapes.Output, the
// first input tensor is echoed back unchanged (identity).
func (b *Backend) Run(h session.Handle, inputs []tensor.Tensor) ([]tensor.Tensor, error) {
	hd := h.(*handle)

	b.mu.RLock()
	err, fail := b.failRun[hd.path]
	b.mu.RUnlock()
	if fail {
		return nil, err
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("identitybackend: no input tensors")
	}

	if len(hd.shapes.Output) == 0 {
		out := inputs[0]
		return []tensor.Tensor{out}, nil
	}

	outShape := hd.shapes.Output[0]
	size := tensor.Size(outShape)
	data := make([]float32, size)
	for i := range data {
		data[i] = inputs[0].Data[i%len(inputs[0].Data)]
	}
	out, err := tensor.New(outShape, data)
	if err != nil {
		return nil, err
	}
	return []tensor.Tensor{out}, nil
}

// Close implements session.Backend.
func (b *Backend) Close(h session.Handle) error {
	return nil
}
