package data

import (
	"errors"
)

var (
	// ErrInsufficientInformationForTask is returned when NewProcessingTask is called without bucket or object key
	ErrInsufficientInformationForTask = errors.New("both bucket and object key required for a processing task")
)

// ProcessingTask identifies one access log object to be processed. It is
// immutable once created and discarded after the executor returns.
type ProcessingTask struct {
	Bucket    string
	ObjectKey string
}

// IsInValidState returns false if either coordinate is missing
func (task *ProcessingTask) IsInValidState() bool {
	return len(task.Bucket) > 0 && len(task.ObjectKey) > 0
}

// NewProcessingTask creates a task for the log object at (bucket, objectKey)
func NewProcessingTask(bucket, objectKey string) (*ProcessingTask, error) {
	task := &ProcessingTask{Bucket: bucket, ObjectKey: objectKey}
	if !task.IsInValidState() {
		return nil, ErrInsufficientInformationForTask
	}
	return task, nil
}
