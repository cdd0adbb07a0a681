// Package session implements the session adapter: a thin
// wrapper around an opaque inference backend. The backend itself (the
// neural-network runtime, the model file format, the tensor math library)
// is a collaborator concern; this package only defines the
// contract a worker drives and the optional post-processing policy applied
// to backend output.
package session

import (
	"fmt"
	"math"

	"github.com/universal-ai-tools/predictord/internal/tensor"
)

// LoadError is returned by Backend.Open when a model fails to load.
// This is fatal for the one affected model, not the process.
type LoadError struct {
	ModelPath string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("session: failed to load %q: %v", e.ModelPath, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RunError is returned by Backend.Run when inference fails for one request.
// This becomes a per-request failure reply, never a panic.
type RunError struct {
	Reason string
	Err    error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: inference failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("session: inference failed: %s", e.Reason)
}

func (e *RunError) Unwrap() error { return e.Err }

// Handle is the opaque, backend-specific loaded-model capability. Backends
// define their own concrete type; workers never inspect it.
type Handle any

// Backend is the collaborator contract wrapped by this package: open a
// model file, run inference on a loaded handle, describe its shapes, and
// release it. Implementations are not required to be safe for concurrent
// calls on the same Handle; the worker guarantees
// single-threaded use of each handle it owns.
type Backend interface {
	Open(path string, numThreads int) (Handle, error)
	Run(h Handle, inputs []tensor.Tensor) ([]tensor.Tensor, error)
	Describe(h Handle) (inputShapes, outputShapes [][]int64)
	Close(h Handle) error
}

// PostProcess selects the output transform the adapter applies after a
// raw backend Run. Default is PostProcessNone: return raw output
// reshaped to its reported shape.
type PostProcess string

const (
	// PostProcessNone returns the backend's raw output tensor unchanged.
	PostProcessNone PostProcess = "none"
	// PostProcessSoftmax applies softmax along the class axis (dimension
	// 1) of the first output tensor, for models whose second dimension is
	// a classification head.
	PostProcessSoftmax PostProcess = "softmax"
)

// Adapter binds a Backend to one post-processing policy, applied to every
// Session opened from it. One Adapter is shared (read-only) across all
// workers; each worker opens its own Session from it, so every model
// served through that Adapter gets the same policy.
type Adapter struct {
	backend Backend
	post    PostProcess
}

// NewAdapter constructs an Adapter. post == "" defaults to PostProcessNone.
func NewAdapter(backend Backend, post PostProcess) *Adapter {
	if post == "" {
		post = PostProcessNone
	}
	return &Adapter{backend: backend, post: post}
}

// Session is a loaded, runnable model owned by exactly one worker.
// It is never shared across goroutines.
type Session struct {
	handle        Handle
	backend       Backend
	post          PostProcess
	inputShapes   [][]int64
	outputShapes  [][]int64
}

// Open loads a model from path with the given intra-op thread count. The
// returned Session is owned exclusively by the caller.
func (a *Adapter) Open(path string, numThreads int) (*Session, error) {
	h, err := a.backend.Open(path, numThreads)
	if err != nil {
		return nil, &LoadError{ModelPath: path, Err: err}
	}
	in, out := a.backend.Describe(h)
	return &Session{
		handle:       h,
		backend:      a.backend,
		post:         a.post,
		inputShapes:  in,
		outputShapes: out,
	}, nil
}

// Describe returns the session's reported input/output shapes.
func (s *Session) Describe() (inputShapes, outputShapes [][]int64) {
	return s.inputShapes, s.outputShapes
}

// Run invokes the backend and applies the session's post-processing
// policy to the first output tensor.
func (s *Session) Run(inputs []tensor.Tensor) ([]tensor.Tensor, error) {
	outputs, err := s.backend.Run(s.handle, inputs)
	if err != nil {
		return nil, &RunError{Reason: "backend run failed", Err: err}
	}
	if len(outputs) == 0 {
		return nil, &RunError{Reason: "backend returned no outputs"}
	}

	if s.post == PostProcessSoftmax {
		processed, err := applySoftmax(outputs[0])
		if err != nil {
			return nil, &RunError{Reason: "softmax post-processing failed", Err: err}
		}
		outputs[0] = processed
	}

	return outputs, nil
}

// Close releases the session's backend handle.
func (s *Session) Close() error {
	return s.backend.Close(s.handle)
}

// applySoftmax normalizes along the class axis (dimension index 1) of a
// tensor shaped [batch, classes, ...]. Rank-1 tensors are treated as a
// single-row [1, classes] tensor.
func applySoftmax(t tensor.Tensor) (tensor.Tensor, error) {
	if len(t.Shape) == 0 {
		return t, nil
	}

	classAxisIdx := 0
	if len(t.Shape) > 1 {
		classAxisIdx = 1
	}
	classes := t.Shape[classAxisIdx]
	if classes <= 0 {
		return t, nil
	}

	inner := tensor.Size(t.Shape[classAxisIdx+1:])
	rows := tensor.Size(t.Shape) / classes
	out := make([]float32, len(t.Data))
	for r := int64(0); r < rows; r++ {
		base := (r/inner)*classes*inner + r%inner
		var max float32 = float32(math.Inf(-1))
		for c := int64(0); c < classes; c++ {
			v := t.Data[base+c*inner]
			if v > max {
				max = v
			}
		}
		var sum float64
		for c := int64(0); c < classes; c++ {
			e := math.Exp(float64(t.Data[base+c*inner] - max))
			out[base+c*inner] = float32(e)
			sum += e
		}
		for c := int64(0); c < classes; c++ {
			out[base+c*inner] = float32(float64(out[base+c*inner]) / sum)
		}
	}

	return tensor.Tensor{Shape: t.Shape, Data: out}, nil
}
