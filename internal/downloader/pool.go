package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
)

// AssetJob is a single asset fetch task.
type AssetJob struct {
	// Name is the md5 file name of the asset on the asset service.
	Name string
}

// AssetResult is the outcome of one asset fetch. Data is kept in
// memory because assets go straight into the bundle zip.
type AssetResult struct {
	Job      AssetJob
	Data     []byte
	Error    error
	Duration time.Duration
}

// AssetFetcher fetches a single asset by file name.
type AssetFetcher interface {
	DownloadAsset(ctx context.Context, name string) ([]byte, error)
}

// WorkerPool fetches assets concurrently.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan AssetJob
	resultQueue chan AssetResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     AssetFetcher
	logger      logger.Logger
}

// NewWorkerPool creates an asset download pool.
func NewWorkerPool(ctx context.Context, numWorkers int, fetcher AssetFetcher, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan AssetJob, numWorkers*2),
		resultQueue: make(chan AssetResult, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		fetcher:     fetcher,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting asset workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for workers to drain it and closes
// the result queue.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues an asset fetch.
func (wp *WorkerPool) Submit(job AssetJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel.
func (wp *WorkerPool) Results() <-chan AssetResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job AssetJob, workerID int) AssetResult {
	start := time.Now()
	result := AssetResult{Job: job}

	data, err := wp.fetcher.DownloadAsset(wp.ctx, job.Name)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("fetching asset %s: %w", job.Name, err)
		wp.logger.ErrorWithFields("asset fetch failed", map[string]interface{}{
			"worker_id": workerID,
			"asset":     job.Name,
			"error":     err.Error(),
		})
		return result
	}

	result.Data = data
	wp.logger.DebugWithFields("asset fetched", map[string]interface{}{
		"worker_id":   workerID,
		"asset":       job.Name,
		"size":        len(data),
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result
}
