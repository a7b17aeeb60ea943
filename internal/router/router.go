package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/refergate/refergate/internal/authz"
	"github.com/refergate/refergate/internal/cache"
	"github.com/refergate/refergate/internal/config"
	adminhandlers "github.com/refergate/refergate/internal/http/handlers/admin"
	publichandlers "github.com/refergate/refergate/internal/http/handlers/public"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rg"
	}
	redisClient := cache.Client()
	clickRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:click", redisPrefix),
		WindowSeconds: cfg.Security.ClickRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClickRateLimit.MaxClicks,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（无需鉴权）
		public := apiV1.Group("/public")
		{
			public.POST("/referrals/click", RateLimitMiddleware(redisClient, clickRule, KeyByIPAndJSONField("code")), publicHandler.TrackClick)
			public.GET("/referrals/validate/:code", publicHandler.ValidateCode)
			public.GET("/referrals/discount", publicHandler.GetDiscount)
		}

		// 支付网关回调
		apiV1.POST("/webhooks/payments", publicHandler.PaymentWebhook)

		// 推广用户接口（宿主签发的用户令牌）
		affiliate := apiV1.Group("/affiliate")
		affiliate.Use(UserJWTMiddleware(cfg.UserJWT.SecretKey))
		{
			affiliate.POST("/register", publicHandler.AffiliateRegister)
			affiliate.GET("/portal", publicHandler.AffiliatePortal)
			affiliate.GET("/link", publicHandler.AffiliateLink)
			affiliate.GET("/commissions", publicHandler.AffiliateCommissions)
			affiliate.GET("/payouts", publicHandler.AffiliatePayouts)
			affiliate.POST("/attribute-signup", publicHandler.AttributeSignup)
		}

		// 管理员接口（宿主签发的管理员令牌 + RBAC）
		admin := apiV1.Group("/admin")
		{
			authorized := admin.Use(
				AdminJWTMiddleware(cfg.JWT.SecretKey, cfg.Security.SuperAdmins),
				AdminRBACMiddleware(c.AuthzService),
			)
			{
				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.DashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.DashboardTrends)
				authorized.GET("/dashboard/rankings", adminHandler.DashboardRankings)

				// 推广活动管理
				authorized.GET("/campaigns", adminHandler.ListCampaigns)
				authorized.GET("/campaigns/:id", adminHandler.GetCampaign)
				authorized.POST("/campaigns", adminHandler.CreateCampaign)
				authorized.PUT("/campaigns/:id", adminHandler.UpdateCampaign)
				authorized.POST("/campaigns/:id/default", adminHandler.SetDefaultCampaign)
				authorized.GET("/campaigns/:id/product-rates", adminHandler.ListCampaignProductRates)
				authorized.POST("/campaigns/:id/product-rates", adminHandler.CreateCampaignProductRate)
				authorized.DELETE("/campaigns/:id/product-rates/:rate_id", adminHandler.DeleteCampaignProductRate)
				authorized.GET("/campaigns/:id/tiers", adminHandler.ListCampaignTiers)
				authorized.POST("/campaigns/:id/tiers", adminHandler.CreateCampaignTier)
				authorized.DELETE("/campaigns/:id/tiers/:tier_id", adminHandler.DeleteCampaignTier)

				// 推广用户管理
				authorized.GET("/affiliates", adminHandler.ListAffiliates)
				authorized.GET("/affiliates/:id", adminHandler.GetAffiliate)
				authorized.PUT("/affiliates/:id/status", adminHandler.UpdateAffiliateStatus)
				authorized.PUT("/affiliates/:id/custom-rate", adminHandler.SetAffiliateCustomRate)
				authorized.GET("/affiliates/:id/due-commissions", adminHandler.GetDueCommissions)

				// 推荐记录
				authorized.GET("/referrals", adminHandler.ListReferrals)

				// 佣金管理
				authorized.GET("/commissions", adminHandler.ListCommissions)
				authorized.POST("/commissions/:id/approve", adminHandler.ApproveCommission)
				authorized.POST("/commissions/:id/reverse", adminHandler.ReverseCommission)

				// 结算批次管理
				authorized.GET("/payouts", adminHandler.ListPayouts)
				authorized.POST("/payouts", adminHandler.CreatePayout)
				authorized.POST("/payouts/:id/complete", adminHandler.CompletePayout)
				authorized.POST("/payouts/:id/cancel", adminHandler.CancelPayout)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
