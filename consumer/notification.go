package consumer

import (
	"encoding/json"
	"errors"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/gemstats/download-counter/storage/data"
)

const testEventName = "s3:TestEvent"

var (
	// ErrMalformedNotification is returned when the message body is not a
	// storage event notification; such messages are acknowledged without
	// processing so they do not poison the queue
	ErrMalformedNotification = errors.New("malformed storage event notification")
)

// snsEnvelope is the wrapper added when the bucket notification reaches the
// queue through an SNS topic without raw message delivery
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

type storageEventNotification struct {
	Event   string `json:"Event"`
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseNotification translates a storage event notification body into
// processing tasks, one per record. Object keys arrive percent encoded and
// are decoded here. Bucket test events yield an empty task list; records
// missing their bucket or key are logged and skipped rather than failing
// the records around them.
func ParseNotification(body []byte) ([]*data.ProcessingTask, error) {
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Type == "Notification" && len(envelope.Message) > 0 {
		body = []byte(envelope.Message)
	}
	var notification storageEventNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, ErrMalformedNotification
	}
	if notification.Event == testEventName {
		return nil, nil
	}
	if notification.Records == nil {
		return nil, ErrMalformedNotification
	}
	tasks := make([]*data.ProcessingTask, 0, len(notification.Records))
	for _, record := range notification.Records {
		objectKey, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			log.Warn().Str("objectKey", record.S3.Object.Key).Msg("undecodable object key in notification record, skipping")
			continue
		}
		task, err := data.NewProcessingTask(record.S3.Bucket.Name, objectKey)
		if err != nil {
			log.Warn().Str("bucket", record.S3.Bucket.Name).Str("objectKey", objectKey).Msg("incomplete notification record, skipping")
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
