package consumer

import (
	"container/list"
	"sync"
)

// A TaskQueue buffers jobs between the receive loop and the worker pool in
// arrival order.
type TaskQueue struct {
	jobs    *list.List
	mu      sync.Mutex
	metrics *MetricsContainer
}

// Len returns the length of the task queue
func (queue *TaskQueue) Len() int {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return queue.jobs.Len()
}

// Enqueue queues the job at the back of the queue
func (queue *TaskQueue) Enqueue(job *Job) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	queue.jobs.PushBack(job)
	queue.metrics.QueuedTaskCount.Set(float64(queue.jobs.Len()))
}

// Dequeue pops the job next in order
func (queue *TaskQueue) Dequeue() *Job {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	frontElement := queue.jobs.Front()
	job := queue.jobs.Remove(frontElement).(*Job)
	queue.metrics.QueuedTaskCount.Set(float64(queue.jobs.Len()))
	return job
}

// NewTaskQueue initializes a queue for Jobs
func NewTaskQueue(metrics *MetricsContainer) *TaskQueue {
	return &TaskQueue{jobs: list.New(), metrics: metrics}
}
