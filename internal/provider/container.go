package provider

import (
	"github.com/refergate/refergate/internal/authz"
	"github.com/refergate/refergate/internal/cache"
	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/queue"
	"github.com/refergate/refergate/internal/repository"
	"github.com/refergate/refergate/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	CampaignRepo   repository.CampaignRepository
	AffiliateRepo  repository.AffiliateRepository
	ReferralRepo   repository.ReferralRepository
	CommissionRepo repository.CommissionRepository
	PayoutRepo     repository.PayoutRepository
	AnalyticsRepo  repository.AnalyticsRepository
	HookEventRepo  repository.HookEventRepository
	DashboardRepo  repository.DashboardRepository

	// Services
	AuthzService       *authz.Service
	HookService        *service.HookService
	CampaignService    *service.CampaignService
	AffiliateService   *service.AffiliateService
	TrackerService     *service.TrackerService
	AttributionService *service.AttributionService
	RateResolver       *service.RateResolver
	LedgerService      *service.LedgerService
	PayoutService      *service.PayoutService
	WebhookService     *service.WebhookService
	DashboardService   *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CampaignRepo = repository.NewCampaignRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.AnalyticsRepo = repository.NewAnalyticsRepository(db)
	c.HookEventRepo = repository.NewHookEventRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.HookService = service.NewHookService(c.HookEventRepo, c.QueueClient, &c.Config.Hooks)
	c.CampaignService = service.NewCampaignService(c.CampaignRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.CampaignRepo, c.HookService, &c.Config.Referral)
	c.TrackerService = service.NewTrackerService(c.ReferralRepo, c.AffiliateRepo, c.CampaignRepo, c.AnalyticsRepo, &c.Config.Security)
	c.AttributionService = service.NewAttributionService(c.ReferralRepo, c.AffiliateRepo, c.CampaignRepo, c.AnalyticsRepo)
	c.RateResolver = service.NewRateResolver(c.CampaignRepo)
	c.LedgerService = service.NewLedgerService(c.CommissionRepo, c.AffiliateRepo, c.AnalyticsRepo, c.HookService, c.RateResolver)
	c.PayoutService = service.NewPayoutService(c.PayoutRepo, c.CommissionRepo, c.AffiliateRepo, c.CampaignRepo, c.AnalyticsRepo, c.HookService, c.LedgerService)
	c.WebhookService = service.NewWebhookService(c.ReferralRepo, c.AffiliateRepo, c.CampaignRepo, c.CommissionRepo, c.AttributionService, c.LedgerService)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
