package worker

import (
	"context"
	"errors"
	"time"

	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultExpireSweepInterval = time.Minute
	defaultPayoutSweepInterval = time.Hour
	hookSweepInterval          = time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	referral config.ReferralConfig
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		referral: cfg.Referral,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.TrackerService != nil {
		go s.runExpireSweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.PayoutService != nil && s.referral.AutoPayoutEnabled {
		go s.runPayoutSweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.HookService != nil {
		go s.runHookSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runExpireSweepLoop 周期扫描并过期超窗的推荐记录
func (s *Service) runExpireSweepLoop(ctx context.Context) {
	interval := defaultExpireSweepInterval
	if s.referral.ExpireSweepSeconds > 0 {
		interval = time.Duration(s.referral.ExpireSweepSeconds) * time.Second
	}
	runOnce := func() {
		expired, err := s.consumer.TrackerService.ExpireReferrals(time.Now())
		if err != nil {
			logger.Warnw("worker_referral_expire_sweep_failed", "error", err)
			return
		}
		if expired > 0 {
			logger.Infow("worker_referral_expire_sweep_done", "expired", expired)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runPayoutSweepLoop 周期为满足起付额的推广用户生成结算批次
func (s *Service) runPayoutSweepLoop(ctx context.Context) {
	interval := defaultPayoutSweepInterval
	if s.referral.PayoutSweepSeconds > 0 {
		interval = time.Duration(s.referral.PayoutSweepSeconds) * time.Second
	}
	runOnce := func() {
		created, err := s.consumer.PayoutService.SweepDuePayouts()
		if err != nil {
			logger.Warnw("worker_payout_sweep_failed", "error", err)
			return
		}
		if created > 0 {
			logger.Infow("worker_payout_sweep_done", "payouts_created", created)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runHookSweepLoop 钩子发件箱兜底扫描，补发队列触发失败的事件
func (s *Service) runHookSweepLoop(ctx context.Context) {
	runOnce := func() {
		if _, err := s.consumer.HookService.DispatchPending(0); err != nil {
			logger.Warnw("worker_hook_sweep_failed", "error", err)
		}
	}

	ticker := time.NewTicker(hookSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
