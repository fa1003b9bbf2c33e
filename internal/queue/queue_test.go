package queue_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/SergeyBurlaka/muzei/internal/queue"
)

func TestProcess(t *testing.T) {
	q := queue.New(1, func(data interface{}) (interface{}, error) {
		return fmt.Sprintf("processed %v", data), nil
	})
	defer q.Shutdown()

	result, err := q.Process("job")
	if err != nil {
		t.Fatal(err)
	}

	if result != "processed job" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestProcessError(t *testing.T) {
	q := queue.New(1, func(data interface{}) (interface{}, error) {
		return nil, fmt.Errorf("handler error")
	})
	defer q.Shutdown()

	if _, err := q.Process("job"); err == nil {
		t.Error("expected an error")
	}
}

func TestSingleWorkerSerializes(t *testing.T) {
	var mu sync.Mutex
	var running, maxRunning int

	q := queue.New(1, func(data interface{}) (interface{}, error) {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	})
	defer q.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Process(nil)
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Errorf("expected at most one job in flight, saw %d", maxRunning)
	}
}

func TestShutdownDuringProcess(t *testing.T) {
	for i := 0; i < 50; i++ {
		q := queue.New(1, func(data interface{}) (interface{}, error) {
			return data, nil
		})

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// Jobs either run or fail with a shutdown error, never panic
				q.Process(nil)
			}()
		}

		q.Shutdown()
		wg.Wait()

		if _, err := q.Process(nil); err == nil {
			t.Fatal("expected an error after shutdown")
		}
	}
}

func TestShutdownTwice(t *testing.T) {
	q := queue.New(1, func(data interface{}) (interface{}, error) {
		return data, nil
	})

	q.Shutdown()
	q.Shutdown()
}
