package async

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerPoolProcessesAll(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID]int{}
	pool := NewWorkerPool(func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.DocumentID]++
		mu.Unlock()
		return nil
	}, testLogger(), WithWorkers(3), WithQueueSize(8))

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, pool.Enqueue(context.Background(), Job{DocumentID: ids[i]}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 5)
	for _, id := range ids {
		assert.Equal(t, 1, seen[id])
	}
}

func TestWorkerPoolBackpressure(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 4)
	pool := NewWorkerPool(func(_ context.Context, _ Job) error {
		started <- struct{}{}
		<-gate
		return nil
	}, testLogger(), WithWorkers(1), WithQueueSize(1))

	ctx := context.Background()
	require.NoError(t, pool.Enqueue(ctx, Job{DocumentID: uuid.New()}))
	<-started // the single worker now holds the first job

	require.NoError(t, pool.Enqueue(ctx, Job{DocumentID: uuid.New()})) // fills the buffer
	assert.Equal(t, 1, pool.Backlog())

	err := pool.Enqueue(ctx, Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrBusy)

	close(gate)
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool.Shutdown(sctx)
}

func TestWorkerPoolEnqueueAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(func(_ context.Context, _ Job) error { return nil }, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pool.Shutdown(ctx)

	err := pool.Enqueue(context.Background(), Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrBusy)
}

func TestWorkerPoolAppliesJobTimeout(t *testing.T) {
	got := make(chan bool, 1)
	pool := NewWorkerPool(func(ctx context.Context, _ Job) error {
		_, ok := ctx.Deadline()
		got <- ok
		return nil
	}, testLogger(), WithWorkers(1), WithJobTimeout(time.Minute))

	require.NoError(t, pool.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	assert.True(t, <-got)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pool.Shutdown(ctx)
}

func TestWorkerPoolFillsJobDefaults(t *testing.T) {
	captured := make(chan Job, 1)
	pool := NewWorkerPool(func(_ context.Context, job Job) error {
		captured <- job
		return nil
	}, testLogger(), WithWorkers(1))

	require.NoError(t, pool.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	job := <-captured
	assert.False(t, job.SubmittedAt.IsZero())
	assert.NotEmpty(t, job.TraceID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pool.Shutdown(ctx)
}
