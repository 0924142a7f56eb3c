// Package consumer receives storage event notifications from the message
// queue, translates them into log processing tasks and fans the tasks out
// to a worker pool. A queue message is acknowledged only once every task it
// carried has finished; a failed task nacks the message so the queue
// redelivers it.
package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/awssnssqs"
	_ "gocloud.dev/pubsub/mempubsub"

	"github.com/gemstats/download-counter/config"
)

const shutdownTimeout = 5 * time.Second

// Message is the queue message surface the consumer needs
type Message interface {
	Ack()
	Nackable() bool
	Nack()
}

// Subscription defines the receive interface for the notification queue
type Subscription interface {
	Receive(ctx context.Context) (*pubsub.Message, error)
	Shutdown(ctx context.Context) error
}

// NewSubscription opens the notification queue subscription from its
// configured URL through "gocloud.dev/pubsub"
func NewSubscription(ctx context.Context, consumerConfig config.ConsumerConfig) (Subscription, error) {
	return pubsub.OpenSubscription(ctx, consumerConfig.GetSubscriptionURL())
}

// acknowledger settles one queue message once all tasks fanned out from it
// have completed; a single failed task turns the settlement into a nack
type acknowledger struct {
	message Message
	pending int32
	failed  uint32
}

func newAcknowledger(message Message, taskCount int) *acknowledger {
	return &acknowledger{message: message, pending: int32(taskCount)}
}

func (ack *acknowledger) done(retry bool) {
	if retry {
		atomic.StoreUint32(&ack.failed, 1)
	}
	if atomic.AddInt32(&ack.pending, -1) == 0 {
		if atomic.LoadUint32(&ack.failed) == 1 && ack.message.Nackable() {
			ack.message.Nack()
		} else {
			ack.message.Ack()
		}
	}
}

// TaskConsumer runs the receive loop against the notification queue
type TaskConsumer struct {
	subscription Subscription
	dispatcher   TaskDispatcher
	metrics      *MetricsContainer
	stopLoop     context.CancelFunc
	loopDone     chan struct{}
}

// NewTaskConsumer retrieves a new instance of TaskConsumer
func NewTaskConsumer(subscription Subscription, dispatcher TaskDispatcher, metrics *MetricsContainer) *TaskConsumer {
	if subscription == nil || dispatcher == nil || metrics == nil {
		panic(panicString)
	}
	return &TaskConsumer{subscription: subscription, dispatcher: dispatcher, metrics: metrics, loopDone: make(chan struct{})}
}

// Start begins receiving notifications; it returns immediately and the
// receive loop runs until Stop is called
func (consumer *TaskConsumer) Start() {
	loopContext, cancelFunc := context.WithCancel(context.Background())
	consumer.stopLoop = cancelFunc
	go consumer.receiveLoop(loopContext)
}

func (consumer *TaskConsumer) receiveLoop(ctx context.Context) {
	defer close(consumer.loopDone)
	for {
		message, err := consumer.subscription.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("error - notification subscription receive failed")
			}
			return
		}
		consumer.handleMessage(message)
	}
}

func (consumer *TaskConsumer) handleMessage(message *pubsub.Message) {
	tasks, err := ParseNotification(message.Body)
	if err != nil {
		log.Warn().Err(err).Msg("dropping malformed notification message")
		consumer.metrics.MalformedNotificationCount.Inc()
		message.Ack()
		return
	}
	if len(tasks) == 0 {
		message.Ack()
		return
	}
	ack := newAcknowledger(message, len(tasks))
	for _, task := range tasks {
		consumer.dispatcher.Dispatch(NewJob(task, ack))
	}
}

// Stop terminates the receive loop and shuts the subscription down; tasks
// already dispatched keep running in the worker pool until the dispatcher
// itself is stopped
func (consumer *TaskConsumer) Stop() {
	if consumer.stopLoop != nil {
		consumer.stopLoop()
	}
	shutdownContext, cancelFunc := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelFunc()
	if err := consumer.subscription.Shutdown(shutdownContext); err != nil {
		log.Error().Err(err).Msg("error - notification subscription shutdown failed")
	}
	select {
	case <-consumer.loopDone:
	case <-shutdownContext.Done():
		log.Print("warn - consumer stop timedout")
	}
}
