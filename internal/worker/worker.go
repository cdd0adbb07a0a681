// Package worker implements the per-model inference worker:
// a state machine that loads a session once, then serves a blocking
// receive loop on a dedicated OS thread so that a slow or CPU-bound
// inference call never starves the rest of the process.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/universal-ai-tools/predictord/internal/config"
	"github.com/universal-ai-tools/predictord/internal/dispatch"
	"github.com/universal-ai-tools/predictord/internal/session"
	"github.com/universal-ai-tools/predictord/internal/state"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

// Phase is one state in the worker's lifecycle:
//
//	Created -> Loading -> Ready -> Draining -> Stopped
//	              \-> Failed
type Phase int32

const (
	Created Phase = iota
	Loading
	Ready
	Draining
	Stopped
	Failed
)

func (p Phase) String() string {
	switch p {
	case Created:
		return "created"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Worker owns exactly one model's Session and exactly one model's receive
// channel. Construction is cheap: no model is loaded until Run starts.
type Worker struct {
	model      config.ModelConfig
	numThreads int
	shared     *state.SharedState
	adapter    *session.Adapter
	receive    <-chan *dispatch.Message
	logger     *zap.Logger
	phase      atomic.Int32
}

// New builds a Worker for model, backed by adapter and fed by receive.
// numThreads is the intra-op thread count passed to the backend on Open.
// shared is updated as the worker's readiness changes.
func New(model config.ModelConfig, numThreads int, shared *state.SharedState, adapter *session.Adapter, receive <-chan *dispatch.Message, logger *zap.Logger) *Worker {
	w := &Worker{
		model:      model,
		numThreads: numThreads,
		shared:     shared,
		adapter:    adapter,
		receive:    receive,
		logger:     logger.With(zap.String("model", model.Name)),
	}
	w.phase.Store(int32(Created))
	return w
}

// Phase returns the worker's current lifecycle state. Safe to call from
// any goroutine.
func (w *Worker) Phase() Phase {
	return Phase(w.phase.Load())
}

func (w *Worker) setPhase(p Phase) {
	w.phase.Store(int32(p))
}

// Run loads the model and serves requests until ctx is cancelled or the
// receive channel is closed, whichever comes first. Run pins its
// goroutine to an OS thread for its whole lifetime and never returns control of that thread.
func (w *Worker) Run(ctx context.Context) {
	runtime.LockOSThread()

	w.setPhase(Loading)
	sess, err := w.adapter.Open(w.model.Path, w.numThreads)
	if err != nil {
		w.logger.Error("model load failed", zap.Error(err))
		w.setPhase(Failed)
		w.shared.SetReady(w.model.Name, false)
		return
	}

	w.setPhase(Ready)
	w.shared.SetReady(w.model.Name, true)
	w.logger.Info("worker ready")

	w.serve(ctx, sess)

	w.setPhase(Stopped)
	w.shared.SetReady(w.model.Name, false)
	if err := sess.Close(); err != nil {
		w.logger.Warn("session close failed", zap.Error(err))
	}
	w.logger.Info("worker stopped")
}

func (w *Worker) serve(ctx context.Context, sess *session.Session) {
	for {
		select {
		case <-ctx.Done():
			w.setPhase(Draining)
			w.drain(sess)
			return
		case msg, ok := <-w.receive:
			if !ok {
				return
			}
			w.process(sess, msg)
		}
	}
}

// drain completes every message already sitting in the channel buffer
// without accepting new ones.
func (w *Worker) drain(sess *session.Session) {
	for {
		select {
		case msg, ok := <-w.receive:
			if !ok {
				return
			}
			w.process(sess, msg)
		default:
			return
		}
	}
}

// process runs inference for one message and guarantees exactly one
// reply is delivered (success, a mapped failure, or a recovered panic)
// so a single bad request never leaves a front end waiting forever.
func (w *Worker) process(sess *session.Session, msg *dispatch.Message) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("recovered from panic during inference", zap.Any("panic", r))
			msg.Reply.Fail(fmt.Errorf("inference panicked: %v", r))
		}
	}()

	out, err := sess.Run([]tensor.Tensor{msg.Input})
	if err != nil {
		msg.Reply.Fail(err)
		return
	}
	msg.Reply.Succeed(out)
}
