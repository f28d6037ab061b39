package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDemoGenerate is the task type for bulk demo content generation.
	TaskDemoGenerate = "demo:generate"
)

// DemoGeneratePayload describes a demo generation request.
type DemoGeneratePayload struct {
	Count       int    `json:"count"`
	RequestedBy string `json:"requested_by"`
}

// NewDemoGenerateTask constructs an Asynq task.
func NewDemoGenerateTask(payload DemoGeneratePayload) (*asynq.Task, error) {
	if payload.Count <= 0 {
		return nil, fmt.Errorf("jobs: demo generate count must be positive")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDemoGenerate, data, asynq.MaxRetry(3)), nil
}
