package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gemstats/download-counter/marker"
	"github.com/gemstats/download-counter/storage/data"
)

type processorStub struct {
	mu        sync.Mutex
	err       error
	panicWith interface{}
	processed []*data.ProcessingTask
	notify    chan struct{}
}

func newProcessorStub() *processorStub {
	return &processorStub{notify: make(chan struct{}, 100)}
}

func (stub *processorStub) Process(ctx context.Context, task *data.ProcessingTask) error {
	stub.mu.Lock()
	stub.processed = append(stub.processed, task)
	stub.mu.Unlock()
	stub.notify <- struct{}{}
	if stub.panicWith != nil {
		panic(stub.panicWith)
	}
	return stub.err
}

func (stub *processorStub) processedCount() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.processed)
}

type messageStub struct {
	mu       sync.Mutex
	nackable bool
	acked    bool
	nacked   bool
}

func (stub *messageStub) Ack() {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.acked = true
}

func (stub *messageStub) Nackable() bool {
	return stub.nackable
}

func (stub *messageStub) Nack() {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.nacked = true
}

func (stub *messageStub) settled() (acked, nacked bool) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.acked, stub.nacked
}

type dispatcherConsumerConfigStub struct {
	workers   uint
	queueSize uint
}

func (stub dispatcherConsumerConfigStub) GetSubscriptionURL() string {
	return "mem://tasks"
}

func (stub dispatcherConsumerConfigStub) GetMaxWorkers() uint {
	return stub.workers
}

func (stub dispatcherConsumerConfigStub) GetMaxTaskQueueSize() uint {
	return stub.queueSize
}

func waitForNotify(t *testing.T, notify chan struct{}, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-notify:
		case <-time.After(5 * time.Second):
			assert.FailNow(t, "timed out waiting for worker execution")
		}
	}
}

func waitForSettled(t *testing.T, message *messageStub) (acked, nacked bool) {
	t.Helper()
	for i := 0; i < 100; i++ {
		acked, nacked = message.settled()
		if acked || nacked {
			return acked, nacked
		}
		time.Sleep(10 * time.Millisecond)
	}
	return message.settled()
}

func newTestDispatcher(processor *processorStub) TaskDispatcher {
	return NewTaskDispatcher(&Configuration{
		Processor:        processor,
		ConsumerConfig:   dispatcherConsumerConfigStub{workers: 3, queueSize: 10},
		MetricsContainer: NewMetricsContainer()})
}

func TestNewTaskDispatcher(t *testing.T) {
	t.Run("PanicOnNilProcessor", func(t *testing.T) {
		assert.Panics(t, func() {
			NewTaskDispatcher(&Configuration{ConsumerConfig: dispatcherConsumerConfigStub{workers: 1, queueSize: 1}, MetricsContainer: NewMetricsContainer()})
		})
	})
	t.Run("PanicOnNilConfig", func(t *testing.T) {
		assert.Panics(t, func() {
			NewTaskDispatcher(&Configuration{Processor: newProcessorStub(), MetricsContainer: NewMetricsContainer()})
		})
	})
}

func TestDispatch(t *testing.T) {
	t.Run("SuccessAcksMessage", func(t *testing.T) {
		processor := newProcessorStub()
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		message := &messageStub{nackable: true}
		task, _ := data.NewProcessingTask("fastly-logs", "a.log.gz")
		dispatcher.Dispatch(NewJob(task, newAcknowledger(message, 1)))
		waitForNotify(t, processor.notify, 1)
		acked, nacked := waitForSettled(t, message)
		assert.True(t, acked)
		assert.False(t, nacked)
		assert.Equal(t, 1, processor.processedCount())
	})
	t.Run("AlreadyProcessedAcksMessage", func(t *testing.T) {
		processor := newProcessorStub()
		processor.err = marker.ErrAlreadyProcessed
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		message := &messageStub{nackable: true}
		task, _ := data.NewProcessingTask("fastly-logs", "b.log.gz")
		dispatcher.Dispatch(NewJob(task, newAcknowledger(message, 1)))
		waitForNotify(t, processor.notify, 1)
		acked, nacked := waitForSettled(t, message)
		assert.True(t, acked)
		assert.False(t, nacked)
	})
	t.Run("FailureNacksMessage", func(t *testing.T) {
		processor := newProcessorStub()
		processor.err = errors.New("merge deadlock")
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		message := &messageStub{nackable: true}
		task, _ := data.NewProcessingTask("fastly-logs", "c.log.gz")
		dispatcher.Dispatch(NewJob(task, newAcknowledger(message, 1)))
		waitForNotify(t, processor.notify, 1)
		acked, nacked := waitForSettled(t, message)
		assert.False(t, acked)
		assert.True(t, nacked)
	})
	t.Run("FailureWithoutNackSupportAcks", func(t *testing.T) {
		processor := newProcessorStub()
		processor.err = errors.New("merge deadlock")
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		message := &messageStub{nackable: false}
		task, _ := data.NewProcessingTask("fastly-logs", "d.log.gz")
		dispatcher.Dispatch(NewJob(task, newAcknowledger(message, 1)))
		waitForNotify(t, processor.notify, 1)
		acked, nacked := waitForSettled(t, message)
		assert.True(t, acked)
		assert.False(t, nacked)
	})
	t.Run("PanicInProcessorNacksMessage", func(t *testing.T) {
		processor := newProcessorStub()
		processor.panicWith = "boom"
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		message := &messageStub{nackable: true}
		task, _ := data.NewProcessingTask("fastly-logs", "e.log.gz")
		dispatcher.Dispatch(NewJob(task, newAcknowledger(message, 1)))
		waitForNotify(t, processor.notify, 1)
		acked, nacked := waitForSettled(t, message)
		assert.False(t, acked)
		assert.True(t, nacked)
	})
	t.Run("MessageSettledOnceAllTasksComplete", func(t *testing.T) {
		processor := newProcessorStub()
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		message := &messageStub{nackable: true}
		ack := newAcknowledger(message, 2)
		taskOne, _ := data.NewProcessingTask("fastly-logs", "f.log.gz")
		taskTwo, _ := data.NewProcessingTask("fastly-logs", "g.log.gz")
		dispatcher.Dispatch(NewJob(taskOne, ack))
		dispatcher.Dispatch(NewJob(taskTwo, ack))
		waitForNotify(t, processor.notify, 2)
		acked, _ := waitForSettled(t, message)
		assert.True(t, acked)
		assert.Equal(t, 2, processor.processedCount())
	})
	t.Run("InvalidJobIgnored", func(t *testing.T) {
		processor := newProcessorStub()
		dispatcher := newTestDispatcher(processor)
		defer dispatcher.Stop()
		dispatcher.Dispatch(nil)
		dispatcher.Dispatch(&Job{})
		assert.Equal(t, 0, processor.processedCount())
	})
}
