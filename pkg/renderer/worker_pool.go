package renderer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// TileTask represents a tile rendering task for the worker pool
type TileTask struct {
	Ctx      context.Context // Frame context; cancelling it abandons the tile
	Tile     *Tile
	TaskID   int // For deterministic ordering
	Renderer *TileRenderer
}

// TileResult contains the result from rendering a tile
type TileResult struct {
	TaskID int
	Stats  TileStats
	Error  error
}

// WorkerPool runs tile tasks of successive frames on a fixed set of goroutines
type WorkerPool struct {
	taskQueue   chan TileTask
	resultQueue chan TileResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker handles individual tile rendering tasks
type Worker struct {
	ID          int
	taskQueue   chan TileTask
	resultQueue chan TileResult
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan TileTask, numWorkers*4),
		resultQueue: make(chan TileResult, numWorkers*4),
		numWorkers:  numWorkers,
	}

	// Create workers
	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:          i,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}

	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(&wp.wg)
	}
}

// Stop shuts down all workers once queued tasks are done
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a tile task to the worker pool
func (wp *WorkerPool) SubmitTask(task TileTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed tile result
func (wp *WorkerPool) GetResult() (TileResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop. Tasks of an abandoned frame are drained
// without tracing so the frame's remaining results arrive quickly.
func (w *Worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		result := TileResult{TaskID: task.TaskID}
		if err := task.Ctx.Err(); err != nil {
			result.Error = err
		} else {
			result.Stats, result.Error = w.render(task)
		}
		w.resultQueue <- result
	}
}

// render traces one tile, turning a panic into an error for that frame
func (w *Worker) render(task TileTask) (stats TileStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d: tile %d panicked: %v", w.ID, task.TaskID, r)
		}
	}()
	return task.Renderer.RenderTileBounds(task.Ctx, task.Tile.Bounds)
}
