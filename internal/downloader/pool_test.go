package downloader

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]bool
}

func (f *fakeFetcher) DownloadAsset(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if f.failing[name] {
		return nil, fmt.Errorf("boom")
	}
	return []byte("data:" + name), nil
}

func TestWorkerPoolFetchesAllJobs(t *testing.T) {
	fetcher := &fakeFetcher{}
	pool := NewWorkerPool(context.Background(), 4, fetcher, logger.NewTestLogger())
	pool.Start()

	names := []string{"a.svg", "b.wav", "c.png"}
	go func() {
		for _, name := range names {
			require.NoError(t, pool.Submit(AssetJob{Name: name}))
		}
		pool.Stop()
	}()

	results := make(map[string][]byte)
	for result := range pool.Results() {
		require.NoError(t, result.Error)
		results[result.Job.Name] = result.Data
	}

	require.Len(t, results, 3)
	assert.Equal(t, []byte("data:a.svg"), results["a.svg"])
	assert.Equal(t, []byte("data:b.wav"), results["b.wav"])
	assert.Equal(t, []byte("data:c.png"), results["c.png"])
}

func TestWorkerPoolReportsFailures(t *testing.T) {
	fetcher := &fakeFetcher{failing: map[string]bool{"bad.svg": true}}
	pool := NewWorkerPool(context.Background(), 2, fetcher, logger.NewTestLogger())
	pool.Start()

	go func() {
		_ = pool.Submit(AssetJob{Name: "good.svg"})
		_ = pool.Submit(AssetJob{Name: "bad.svg"})
		pool.Stop()
	}()

	var failed, succeeded int
	for result := range pool.Results() {
		if result.Error != nil {
			failed++
			assert.Equal(t, "bad.svg", result.Job.Name)
		} else {
			succeeded++
		}
	}

	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, &fakeFetcher{}, logger.NewTestLogger())
	cancel()

	// A cancelled pool may still accept into the buffer, but a full
	// queue must not block forever.
	for i := 0; i < 10; i++ {
		if err := pool.Submit(AssetJob{Name: "x.svg"}); err != nil {
			assert.Contains(t, err.Error(), "shutting down")
			return
		}
	}
	t.Fatal("submit never failed after cancel")
}

func TestWorkerPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 0, &fakeFetcher{}, logger.NewTestLogger())
	assert.Equal(t, 1, pool.numWorkers)
}
