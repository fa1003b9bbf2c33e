// Package queue provides a worker queue. The sync manager runs one with a
// single worker to keep loader runs and registry writes serialized.
package queue

import (
	"fmt"
	"sync"
)

// Queue is a worker queue with a fixed amount of workers
type Queue struct {
	queue    chan job
	handler  func(interface{}) (interface{}, error)
	mutex    sync.RWMutex
	shutdown bool
}

type job struct {
	data   interface{}
	result chan jobResult
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue with the specified amount of workers
func New(workers int, handler func(interface{}) (interface{}, error)) *Queue {
	queue := &Queue{
		queue:   make(chan job),
		handler: handler,
	}

	for i := 0; i < workers; i++ {
		go queue.worker()
	}

	return queue
}

func (q *Queue) worker() {
	for {
		job, open := <-q.queue
		if !open {
			return
		}

		result, err := q.handler(job.data)
		job.result <- jobResult{
			result: result,
			err:    err,
		}
	}
}

// Process adds a job to the queue, waits for it to process, and returns the result
func (q *Queue) Process(data interface{}) (interface{}, error) {
	resultChan := make(chan jobResult)

	// The read lock spans the send so that Shutdown can not close the
	// channel underneath a pending job
	q.mutex.RLock()
	if q.shutdown {
		q.mutex.RUnlock()
		return nil, fmt.Errorf("queue has been shutdown")
	}

	q.queue <- job{
		data:   data,
		result: resultChan,
	}
	q.mutex.RUnlock()

	result := <-resultChan
	close(resultChan)

	if result.err != nil {
		return nil, result.err
	}

	return result.result, nil
}

// Shutdown shuts down the queue after all currently running tasks are finished
func (q *Queue) Shutdown() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.shutdown {
		return
	}

	q.shutdown = true
	close(q.queue)
}
