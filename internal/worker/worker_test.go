package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/universal-ai-tools/predictord/internal/config"
	"github.com/universal-ai-tools/predictord/internal/dispatch"
	"github.com/universal-ai-tools/predictord/internal/session"
	"github.com/universal-ai-tools/predictord/internal/session/identitybackend"
	"github.com/universal-ai-tools/predictord/internal/state"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

func testSetup(t *testing.T) (*config.Config, *state.SharedState) {
	t.Helper()
	cfg := &config.Config{
		Models: []config.ModelConfig{{Name: "squeezenet", Path: "squeezenet1.0-8.onnx"}},
		Server: config.ServerConfig{HTTPPort: 8080, GRPCPort: 50051, BufferSize: 2, NumThreads: 1},
	}
	return cfg, state.New(cfg)
}

func TestWorkerBecomesReadyAndServesRequests(t *testing.T) {
	cfg, shared := testSetup(t)
	backend := identitybackend.New(nil)
	adapter := session.NewAdapter(backend, session.PostProcessNone)
	receive := make(chan *dispatch.Message, cfg.Server.BufferSize)

	w := New(cfg.Models[0], cfg.Server.NumThreads, shared, adapter, receive, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitForPhase(t, w, Ready)
	if !shared.IsReady("squeezenet") {
		t.Fatal("expected shared state to report ready once worker reaches Ready")
	}

	in, _ := tensor.New([]int64{1}, []float32{42})
	msg := dispatch.NewMessage("squeezenet", in)
	receive <- msg

	res, err := msg.Reply.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected await error: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("unexpected inference error: %v", res.Err)
	}
	if res.Output[0].Data[0] != 42 {
		t.Fatalf("expected identity passthrough, got %+v", res.Output)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
	if w.Phase() != Stopped {
		t.Fatalf("expected Stopped, got %s", w.Phase())
	}
	if shared.IsReady("squeezenet") {
		t.Fatal("expected shared state to report not-ready after stop")
	}
}

func TestWorkerLoadFailureReachesFailedAndNeverReady(t *testing.T) {
	cfg, shared := testSetup(t)
	backend := identitybackend.New(nil)
	backend.FailOpen("squeezenet1.0-8.onnx", context.DeadlineExceeded)
	adapter := session.NewAdapter(backend, session.PostProcessNone)
	receive := make(chan *dispatch.Message, cfg.Server.BufferSize)

	w := New(cfg.Models[0], cfg.Server.NumThreads, shared, adapter, receive, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitForPhase(t, w, Failed)
	if shared.IsReady("squeezenet") {
		t.Fatal("expected shared state to stay not-ready after load failure")
	}
}

func TestWorkerDrainsBufferedMessagesOnShutdown(t *testing.T) {
	cfg, shared := testSetup(t)
	backend := identitybackend.New(nil)
	adapter := session.NewAdapter(backend, session.PostProcessNone)
	receive := make(chan *dispatch.Message, cfg.Server.BufferSize)

	w := New(cfg.Models[0], cfg.Server.NumThreads, shared, adapter, receive, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	waitForPhase(t, w, Ready)

	in, _ := tensor.New([]int64{1}, []float32{7})
	msg := dispatch.NewMessage("squeezenet", in)
	receive <- msg

	cancel()
	res, err := msg.Reply.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected await error: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("expected buffered message to still be served during drain, got err: %v", res.Err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after draining")
	}
}

func waitForPhase(t *testing.T, w *Worker, want Phase) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if w.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s, last seen %s", want, w.Phase())
}
