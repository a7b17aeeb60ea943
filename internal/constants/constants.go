package constants

// 推广活动佣金类型常量
const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFixed      = "fixed"
)

// 推广活动佣金周期常量
const (
	CommissionDurationLifetime    = "lifetime"
	CommissionDurationMaxPayments = "max_payments"
	CommissionDurationMaxMonths   = "max_months"
)

// 推广活动结算账期常量
const (
	PayoutTermNet0  = "net_0"
	PayoutTermNet15 = "net_15"
	PayoutTermNet30 = "net_30"
	PayoutTermNet60 = "net_60"
	PayoutTermNet90 = "net_90"
)

// 被推荐人优惠类型常量
const (
	RefereeDiscountPercentage = "percentage"
	RefereeDiscountFixed      = "fixed"
)

// 推广人状态常量
const (
	AffiliateStatusPending   = "pending"
	AffiliateStatusApproved  = "approved"
	AffiliateStatusRejected  = "rejected"
	AffiliateStatusSuspended = "suspended"
)

// 推荐记录状态常量
const (
	ReferralStatusClicked   = "clicked"
	ReferralStatusSignedUp  = "signed_up"
	ReferralStatusConverted = "converted"
	ReferralStatusExpired   = "expired"
)

// 佣金状态常量
const (
	CommissionStatusPending    = "pending"
	CommissionStatusApproved   = "approved"
	CommissionStatusProcessing = "processing"
	CommissionStatusPaid       = "paid"
	CommissionStatusReversed   = "reversed"
)

// 结算单状态常量
const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusCancelled = "cancelled"
)

// 分析事件类型常量
const (
	AnalyticsEventClick      = "click"
	AnalyticsEventSignup     = "signup"
	AnalyticsEventConversion = "conversion"
	AnalyticsEventRefund     = "refund"
	AnalyticsEventPayout     = "payout"
)

// 支付事件类型常量
const (
	PaymentEventCheckoutCompleted = "checkout.completed"
	PaymentEventPaymentSucceeded  = "payment.succeeded"
	PaymentEventPaymentRefunded   = "payment.refunded"
)

// 生命周期钩子常量
const (
	HookAffiliateRegistered = "affiliate.registered"
	HookAffiliateApproved   = "affiliate.approved"
	HookAffiliateRejected   = "affiliate.rejected"
	HookAffiliateSuspended  = "affiliate.suspended"
	HookCommissionCreated   = "commission.created"
	HookCommissionReversed  = "commission.reversed"
	HookPayoutCompleted     = "payout.completed"
)

// 队列常量
const (
	QueueDefault     = "default"
	TaskHookDispatch = "hook:dispatch"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "rg"
)

// 推荐码字符集（去除易混淆字符）
const ReferralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
