package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup refreshes the cached dashboard stats.
	TaskDashboardWarmup = "dashboard:warmup"
)

// WarmupPayload selects the stats scopes a warmup refreshes. An empty list
// warms every scope.
type WarmupPayload struct {
	Scopes []string `json:"scopes,omitempty"`
	// Bump invalidates the cache before warming.
	Bump bool `json:"bump,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task.
func NewDashboardWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}
