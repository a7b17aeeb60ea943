package queue

import (
	"encoding/json"

	"github.com/refergate/refergate/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskHookDispatch 钩子事件派发任务
	TaskHookDispatch = constants.TaskHookDispatch
)

// HookDispatchPayload 钩子派发任务载荷
type HookDispatchPayload struct {
	HookEventID uint `json:"hook_event_id"`
}

// NewHookDispatchTask 创建钩子派发任务
func NewHookDispatchTask(payload HookDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHookDispatch, body), nil
}
