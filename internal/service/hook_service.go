package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/queue"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

const hookDispatchBatchSize = 50

// HookService 生命周期钩子服务
// 事件以发件箱模式与业务变更同事务落库，订阅方失败只影响派发重试，不影响业务
type HookService struct {
	hookRepo   repository.HookEventRepository
	queue      *queue.Client
	endpoint   string
	httpClient *http.Client
}

// NewHookService 创建钩子服务
func NewHookService(hookRepo repository.HookEventRepository, queueClient *queue.Client, cfg *config.HooksConfig) *HookService {
	endpoint := ""
	timeout := 5 * time.Second
	if cfg != nil {
		endpoint = strings.TrimSpace(cfg.Endpoint)
		if cfg.TimeoutMS > 0 {
			timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
		}
	}
	return &HookService{
		hookRepo:   hookRepo,
		queue:      queueClient,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EmitTx 在业务事务内写入钩子事件
func (s *HookService) EmitTx(tx *gorm.DB, hook string, payload interface{}) error {
	if s == nil || s.hookRepo == nil || strings.TrimSpace(hook) == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := &models.HookEvent{
		Hook:    hook,
		Payload: string(body),
	}
	return s.hookRepo.WithTx(tx).Create(event)
}

// NotifyDispatcher 业务事务提交后尽力触发一次异步派发
// 队列不可用时静默跳过，worker 的定时扫描会兜底
func (s *HookService) NotifyDispatcher() {
	if s == nil || !s.queue.Enabled() {
		return
	}
	if err := s.queue.EnqueueHookDispatch(queue.HookDispatchPayload{}); err != nil {
		logger.Warnw("hook_dispatch_enqueue_failed", "error", err)
	}
}

// DispatchPending 派发待处理钩子事件，返回成功派发数量
func (s *HookService) DispatchPending(limit int) (int, error) {
	if s == nil || s.hookRepo == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = hookDispatchBatchSize
	}
	events, err := s.hookRepo.ListPending(limit)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	now := time.Now()
	for _, event := range events {
		if err := s.hookRepo.IncrementAttempts(event.ID); err != nil {
			logger.Warnw("hook_attempt_record_failed", "hook_event_id", event.ID, "error", err)
		}
		if err := s.deliver(&event); err != nil {
			logger.Warnw("hook_deliver_failed",
				"hook_event_id", event.ID,
				"hook", event.Hook,
				"error", err,
			)
			continue
		}
		if err := s.hookRepo.MarkDispatched(event.ID, now); err != nil {
			logger.Errorw("hook_mark_dispatched_failed", "hook_event_id", event.ID, "error", err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

func (s *HookService) deliver(event *models.HookEvent) error {
	if event == nil {
		return nil
	}
	// 未配置订阅方时只记录结构化日志
	if s.endpoint == "" {
		logger.Infow("hook_event",
			"hook", event.Hook,
			"payload", event.Payload,
		)
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"hook":       event.Hook,
		"payload":    json.RawMessage(event.Payload),
		"emitted_at": event.CreatedAt.Unix(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrInternal
	}
	return nil
}
