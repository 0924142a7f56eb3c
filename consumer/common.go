package consumer

import (
	"github.com/google/wire"
	"github.com/rs/xid"

	"github.com/gemstats/download-counter/storage/data"
)

var (
	// ConsumerInjector is the injector for the notification consumer module
	ConsumerInjector = wire.NewSet(NewSubscription, NewTaskConsumer, NewTaskDispatcher, wire.Struct(new(Configuration), "Processor", "ConsumerConfig", "MetricsContainer"))
)

// Job represents one processing task to be run by a worker, tied back to
// the queue message it came from for acknowledgement
type Job struct {
	ID   xid.ID
	Task *data.ProcessingTask
	ack  *acknowledger
}

// NewJob returns a new instance of Job. Only call this method if Task.IsInValidState() is true, else can result a panic
func NewJob(task *data.ProcessingTask, ack *acknowledger) *Job {
	return &Job{ID: xid.New(), Task: task, ack: ack}
}
