package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gemstats/download-counter/counter"
	"github.com/gemstats/download-counter/marker"
)

// Worker represents the worker that executes log processing jobs
type Worker struct {
	workerPool chan chan *Job
	jobChannel chan *Job
	quit       chan bool
	working    bool
	processor  counter.Processor
	metrics    *MetricsContainer
}

// NewWorker creates a Worker
func NewWorker(workerPool chan chan *Job, processor counter.Processor, metrics *MetricsContainer) Worker {
	return Worker{
		workerPool: workerPool,
		jobChannel: make(chan *Job, 1),
		quit:       make(chan bool, 1),
		working:    false,
		processor:  processor,
		metrics:    metrics}
}

var processJob = func(w *Worker, job *Job) {
	log.Debug().Str("jobID", job.ID.String()).Str("objectKey", job.Task.ObjectKey).Msg("processing log object in worker")
	err := w.executeJob(job)
	switch {
	case err == nil:
		w.metrics.ProcessedLogCount.Inc()
		job.ack.done(false)
	case errors.Is(err, marker.ErrAlreadyProcessed):
		log.Debug().Str("jobID", job.ID.String()).Str("objectKey", job.Task.ObjectKey).Msg("log object already processed, skipping")
		w.metrics.SkippedLogCount.Inc()
		job.ack.done(false)
	default:
		log.Error().Err(err).Str("jobID", job.ID.String()).Str("objectKey", job.Task.ObjectKey).Msg("error - worker failed to process log object")
		w.metrics.FailedLogCount.Inc()
		job.ack.done(true)
	}
}

// Start method starts the run loop for the worker, listening for a quit channel in
// case we need to stop it
func (w *Worker) Start() {
	go func() {
		w.working = true
		for {
			// register the current worker into the worker queue.
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				processJob(w, job)
			case <-w.quit:
				// we have received a signal to stop
				w.working = false
				return
			}
		}
	}()
}

func (w *Worker) executeJob(job *Job) (err error) {
	// Do not let the worker crash due to any panic
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msg(fmt.Sprint("error - panic in processing log object -", job.ID, r))
			err = fmt.Errorf("panic in processing log object: %v", r)
		}
	}()
	return w.processor.Process(context.Background(), job.Task)
}

// IsWorking retrieves whether the work is active
func (w *Worker) IsWorking() bool {
	return w.working
}

// Stop signals the worker to stop listening for work requests.
func (w *Worker) Stop() {
	go func() {
		w.quit <- true
	}()
}
