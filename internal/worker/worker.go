package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// Pool runs fire-and-forget jobs (notification delivery, event reactions)
// outside the request transaction. A failed task is logged, never retried
// here; retry policy belongs to the submitter.
type Pool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	isClosing atomic.Bool
}

func NewPool(size int) *Pool {
	p := &Pool{
		taskQueue: make(chan Task, 1000), // Buffer for 1000 pending tasks
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.startWorker()
	}

	return p
}

func (p *Pool) startWorker() {
	defer p.wg.Done()
	for task := range p.taskQueue {
		if err := task(context.Background()); err != nil {
			log.Printf("Worker task failed: %v", err)
		}
	}
}

func (p *Pool) Submit(t Task) {
	if p.isClosing.Load() {
		log.Println("Warning: task submitted during shutdown, dropping.")
		return
	}
	select {
	case p.taskQueue <- t:
	default:
		log.Println("Task queue full, dropping task!")
	}
}

// Shutdown closes the queue and waits for workers to finish
func (p *Pool) Shutdown() {
	p.isClosing.Store(true)
	close(p.taskQueue)
	p.wg.Wait()
}
