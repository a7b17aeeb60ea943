package worker

import (
	"context"
	"encoding/json"

	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/provider"
	"github.com/refergate/refergate/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskHookDispatch, c.handleHookDispatch)
}

func (c *Consumer) handleHookDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_hook_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.HookDispatchPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_hook_dispatch_unmarshal_failed", "error", err)
			return err
		}
	}
	if c.HookService == nil {
		logger.Warnw("worker_hook_dispatch_skip_hook_service_nil")
		return nil
	}
	dispatched, err := c.HookService.DispatchPending(0)
	if err != nil {
		logger.Warnw("worker_hook_dispatch_failed", "error", err)
		return err
	}
	if dispatched > 0 {
		logger.Infow("worker_hook_dispatch_done", "dispatched", dispatched)
	}
	return nil
}
