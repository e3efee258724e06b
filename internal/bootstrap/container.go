package bootstrap

import (
	"context"
	"log"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/controller"
	"ai-agenthub-be/internal/pkg/logger"
	"ai-agenthub-be/internal/pkg/mailer"
	"ai-agenthub-be/internal/repository/cache"
	"ai-agenthub-be/internal/repository/unitofwork"
	"ai-agenthub-be/internal/service"
	"ai-agenthub-be/pkg/billing/pricing"

	pktNats "ai-agenthub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const ledgerTopic = "ledger.applied"

type Container struct {
	// Controllers
	CreditController  controller.ICreditController
	PaymentController controller.IPaymentController

	// Background Services (Exposed for main.go to run)
	UsageConsumerService       service.IUsageConsumerService
	LedgerEventConsumerService service.ILedgerEventConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis-backed balance cache, falling back to in-process when Redis is down.
	var balanceCache cache.BalanceCache
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory balance cache", err)
		balanceCache = cache.NewMemoryBalanceCache(cfg.Billing.BalanceCacheTTL)
	} else {
		balanceCache = cache.NewRedisBalanceCache(rdb, cfg.Billing.BalanceCacheTTL)
	}

	// 3. Services
	calculator := pricing.NewCalculator(pricing.Policy{
		UsageMarkup:     cfg.Billing.UsageMarkup,
		SelfUsageMarkup: cfg.Billing.SelfUsageMarkup,
	})

	creditService := service.NewCreditService(
		uowFactory,
		calculator,
		balanceCache,
		cfg.Billing,
		sysLogger,
		pubSub,
		ledgerTopic,
	)
	paymentService := service.NewPaymentService(uowFactory, creditService, cfg, sysLogger)

	var usageConsumer service.IUsageConsumerService
	if natsSub != nil {
		usageConsumer = service.NewUsageConsumerService(natsSub, creditService, sysLogger)
	}
	ledgerConsumer := service.NewLedgerEventConsumerService(
		pubSub,
		ledgerTopic,
		uowFactory,
		emailService,
		natsPub,
		sysLogger,
	)

	// 4. Controllers
	creditController := controller.NewCreditController(creditService)
	paymentController := controller.NewPaymentController(paymentService)

	return &Container{
		CreditController:           creditController,
		PaymentController:          paymentController,
		UsageConsumerService:       usageConsumer,
		LedgerEventConsumerService: ledgerConsumer,
		Logger:                     sysLogger,
	}
}
