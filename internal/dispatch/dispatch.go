// Package dispatch implements the per-model bounded queues and the
// request/response rendezvous primitive: the Fabric (frozen name ->
// send handle map) and the Message / reply handle that flows through it.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/universal-ai-tools/predictord/internal/config"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

// ErrUnknownModel is returned when a Message names a model the fabric was
// not built with.
var ErrUnknownModel = errors.New("dispatch: unknown model name")

// ErrQueueFull is returned by Send when the caller's context expires
// before the message could be enqueued.
var ErrQueueFull = errors.New("dispatch: queue full past deadline")

// ErrWorkerGone is returned by Send when the model's queue channel has
// been closed. Go channels have no "receiver gone" signal short of
// closing the channel, so this package treats a send-on-closed panic as
// the structural equivalent of a dropped receiver. Workers hold only the
// receive end and do not close it when they stop, so a stopped worker by
// itself does not make Send return ErrWorkerGone.
var ErrWorkerGone = errors.New("dispatch: worker gone")

// Result carries the outcome of one inference: either a populated Output
// or a non-nil Err (never both).
type Result struct {
	Output []tensor.Tensor
	Err    error
}

// Reply is the single-use, single-producer/single-consumer rendezvous
// handle carried by every Message. It tolerates the receiver dropping
// without leaking the sender: the channel has room for the one result,
// so delivery never blocks, and delivery is idempotent. The worker's
// process step completes every reply it handles, calling Fail on an
// inference error or a recovered panic.
type Reply struct {
	ch   chan Result
	once sync.Once
}

func newReply() *Reply {
	return &Reply{ch: make(chan Result, 1)}
}

// Succeed delivers a successful result. Safe to call at most meaningfully
// once; subsequent calls (success or failure) are no-ops.
func (r *Reply) Succeed(output []tensor.Tensor) {
	r.once.Do(func() { r.ch <- Result{Output: output} })
}

// Fail delivers a failed result.
func (r *Reply) Fail(err error) {
	r.once.Do(func() { r.ch <- Result{Err: err} })
}

// Await blocks until the reply is delivered or ctx is done. A client
// disconnect must not cancel in-flight inference: callers
// that stop waiting simply abandon the channel; the worker still
// delivers into it and the channel is garbage collected once both sides
// are done with it.
func (r *Reply) Await(ctx context.Context) (Result, error) {
	select {
	case res := <-r.ch:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Message is the unit flowing through the fabric. Created by
// a front end, moved into a model's queue, consumed exactly once by that
// model's worker.
type Message struct {
	PredictionID uuid.UUID
	ModelName    string
	Input        tensor.Tensor
	Reply        *Reply
}

// NewMessage builds a Message with a fresh prediction id and reply handle.
func NewMessage(modelName string, input tensor.Tensor) *Message {
	return &Message{
		PredictionID: uuid.New(),
		ModelName:    modelName,
		Input:        input,
		Reply:        newReply(),
	}
}

// Fabric is the frozen name -> send-handle map. Front ends
// hold a read-only reference to it; the receive end of each channel is
// handed separately to that model's worker at construction.
type Fabric struct {
	queues map[string]chan *Message
}

// Build constructs one bounded queue per configured model (capacity
// server.buffer_size) and returns the Fabric (for front ends) alongside
// the raw channel map (for the supervisor to hand receive ends to
// workers). The map is frozen: no further models can be added.
func Build(cfg *config.Config) (*Fabric, map[string]chan *Message) {
	queues := make(map[string]chan *Message, len(cfg.Models))
	for _, m := range cfg.Models {
		queues[m.Name] = make(chan *Message, cfg.Server.BufferSize)
	}
	return &Fabric{queues: queues}, queues
}

// Names returns the configured model names.
func (f *Fabric) Names() []string {
	names := make([]string, 0, len(f.queues))
	for name := range f.queues {
		names = append(names, name)
	}
	return names
}

// Has reports whether name is a configured model.
func (f *Fabric) Has(name string) bool {
	_, ok := f.queues[name]
	return ok
}

// QueueDepth reports the current number of messages waiting in name's
// queue, for metrics/diagnostics. Returns 0 for an unknown model.
func (f *Fabric) QueueDepth(name string) int {
	if ch, ok := f.queues[name]; ok {
		return len(ch)
	}
	return 0
}

// Send enqueues msg on its model's queue, suspending the caller until
// space is available or ctx is done. Callers should derive ctx from a deadline (the HTTP/gRPC
// enqueue timeout) rather than pass context.Background().
func (f *Fabric) Send(ctx context.Context, msg *Message) (err error) {
	ch, ok := f.queues[msg.ModelName]
	if !ok {
		return ErrUnknownModel
	}

	defer func() {
		if r := recover(); r != nil {
			err = ErrWorkerGone
		}
	}()

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}
