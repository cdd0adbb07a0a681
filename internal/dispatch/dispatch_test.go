package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/universal-ai-tools/predictord/internal/config"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

func testConfig() *config.Config {
	return &config.Config{
		Models: []config.ModelConfig{
			{Name: "squeezenet", Path: "squeezenet1.0-8.onnx"},
		},
		Server: config.ServerConfig{HTTPPort: 8080, GRPCPort: 50051, BufferSize: 1, NumThreads: 1},
	}
}

func TestBuildCardinalityMatchesModels(t *testing.T) {
	fabric, queues := Build(testConfig())
	if len(fabric.Names()) != 1 {
		t.Fatalf("expected 1 model, got %d", len(fabric.Names()))
	}
	if len(queues) != 1 {
		t.Fatalf("expected 1 queue, got %d", len(queues))
	}
	if !fabric.Has("squeezenet") {
		t.Fatal("expected fabric to know about squeezenet")
	}
}

func TestSendUnknownModelRejected(t *testing.T) {
	fabric, _ := Build(testConfig())
	in, _ := tensor.New([]int64{1}, []float32{1})
	msg := NewMessage("does-not-exist", in)

	err := fabric.Send(context.Background(), msg)
	if err != ErrUnknownModel {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestSendBlocksUntilQueueSpaceOrDeadline(t *testing.T) {
	fabric, _ := Build(testConfig())
	in, _ := tensor.New([]int64{1}, []float32{1})

	first := NewMessage("squeezenet", in)
	if err := fabric.Send(context.Background(), first); err != nil {
		t.Fatalf("unexpected error filling queue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second := NewMessage("squeezenet", in)
	err := fabric.Send(ctx, second)
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestReplyRendezvousDeliversOnce(t *testing.T) {
	fabric, queues := Build(testConfig())
	in, _ := tensor.New([]int64{1}, []float32{1})
	msg := NewMessage("squeezenet", in)

	if err := fabric.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	received := <-queues["squeezenet"]
	if received.PredictionID != msg.PredictionID {
		t.Fatal("expected worker to dequeue the same message")
	}

	received.Reply.Succeed([]tensor.Tensor{in})
	received.Reply.Fail(nil) // should be a no-op, once delivery already happened

	res, err := msg.Reply.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected await error: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("expected successful result, got err: %v", res.Err)
	}
	if len(res.Output) != 1 {
		t.Fatalf("expected 1 output tensor, got %d", len(res.Output))
	}
}

func TestSendOnClosedQueueReturnsWorkerGone(t *testing.T) {
	fabric, queues := Build(testConfig())
	close(queues["squeezenet"])

	in, _ := tensor.New([]int64{1}, []float32{1})
	msg := NewMessage("squeezenet", in)

	err := fabric.Send(context.Background(), msg)
	if err != ErrWorkerGone {
		t.Fatalf("expected ErrWorkerGone, got %v", err)
	}
}
