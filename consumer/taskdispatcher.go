package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gemstats/download-counter/config"
	"github.com/gemstats/download-counter/counter"
)

const (
	panicString = "parameters null"

	stopTimeout = 5 * time.Second
)

// TaskDispatcher is the contract for fanning processing jobs out to workers
type TaskDispatcher interface {
	Dispatch(job *Job)
	Stop()
}

// TaskDispatcherImpl is responsible for buffering jobs and handing them to
// idle workers
type TaskDispatcherImpl struct {
	workerPool     chan chan *Job
	workers        []*Worker
	jobQueue       chan *Job
	taskQueue      *TaskQueue
	dispatcherStop chan bool
}

// Dispatch queues the job for execution by the worker pool
func (dispatcher *TaskDispatcherImpl) Dispatch(job *Job) {
	if job == nil || job.Task == nil || !job.Task.IsInValidState() {
		return
	}
	dispatcher.jobQueue <- job
}

func (dispatcher *TaskDispatcherImpl) startTaskDispatcher() {
	for {
		select {
		case job := <-dispatcher.jobQueue:
			dispatcher.dispatchJob(job)
		case <-dispatcher.dispatcherStop:
			return
		}
	}
}

var asyncDequeueToWorker = func(dispatcher *TaskDispatcherImpl) {
	// try to obtain a worker job channel that is available.
	// this will block until a worker is idle
	jobChannel := <-dispatcher.workerPool

	// dispatch the job to the worker job channel
	jobChannel <- dispatcher.taskQueue.Dequeue()
}

func (dispatcher *TaskDispatcherImpl) dispatchJob(job *Job) {
	dispatcher.taskQueue.Enqueue(job)
	// a job request has been received
	go asyncDequeueToWorker(dispatcher)
}

// StartDispatcher starts consuming jobs and should be called as a coroutine.
func (dispatcher *TaskDispatcherImpl) StartDispatcher() {
	go dispatcher.startTaskDispatcher()
}

// Stop stops the workers of the dispatcher
func (dispatcher *TaskDispatcherImpl) Stop() {
	timeoutContext, cancelFunc := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelFunc()
	select {
	case <-timeoutContext.Done():
		log.Print("warn - dispatcher stop timedout")
		return
	default:
		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() {
			dispatcher.dispatcherStop <- true
			wg.Done()
		}()
		log.Print("stopping workers", len(dispatcher.workers))
		anyRunning := true
		for i := 0; i < len(dispatcher.workers); i++ {
			wg.Add(1)
			go func(index int) {
				dispatcher.workers[index].Stop()
				wg.Done()
			}(i)
		}
		for anyRunning {
			localRun := false
			for i := 0; i < len(dispatcher.workers); i++ {
				localRun = localRun || dispatcher.workers[i].IsWorking()
			}
			anyRunning = localRun
		}
		wg.Wait()
	}
}

// Configuration represents the configuration for a dispatcher
type Configuration struct {
	Processor        counter.Processor
	ConsumerConfig   config.ConsumerConfig
	MetricsContainer *MetricsContainer
}

// NewTaskDispatcher retrieves new instance of TaskDispatcher
func NewTaskDispatcher(configuration *Configuration) TaskDispatcher {
	if configuration.Processor == nil || configuration.ConsumerConfig == nil || configuration.MetricsContainer == nil {
		panic(panicString)
	}
	consumerConfig := configuration.ConsumerConfig
	dispatcherImpl := &TaskDispatcherImpl{
		workerPool:     make(chan chan *Job, consumerConfig.GetMaxWorkers()),
		taskQueue:      NewTaskQueue(configuration.MetricsContainer),
		jobQueue:       make(chan *Job, consumerConfig.GetMaxTaskQueueSize()),
		dispatcherStop: make(chan bool)}
	workers := make([]*Worker, consumerConfig.GetMaxWorkers())
	for i := 0; i < len(workers); i++ {
		worker := NewWorker(dispatcherImpl.workerPool, configuration.Processor, configuration.MetricsContainer)
		worker.Start()
		workers[i] = &worker
	}
	dispatcherImpl.workers = workers
	dispatcherImpl.StartDispatcher()
	return dispatcherImpl
}
