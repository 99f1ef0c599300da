package main

import (
	"context"
	"database/sql"
	"fmt"

	commonlogger "societysync/common/logger"
	commonmqtt "societysync/common/mqtt"
	commonredis "societysync/common/redis"

	"societysync/common/database"
	"societysync/internal/auth"
	"societysync/internal/config"
	"societysync/internal/domain"
	"societysync/internal/notify"
	"societysync/internal/repository"
	"societysync/internal/service"
	"societysync/internal/store"

	"go.uber.org/zap"
)

// app 一次进程运行所需的全部依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *commonredis.Client
	mqtt   *commonmqtt.Client

	tokens *auth.TokenManager
	clock  service.Clock

	users         repository.UsersRepository
	occupancy     service.OccupancyService
	authSvc       service.AuthService
	userSvc       service.UserService
	billing       service.BillingService
	complaints    service.ComplaintService
	visitors      service.VisitorService
	notifications service.NotificationService
	polls         service.PollService
	dashboard     service.DashboardService
}

// bootstrap 读取配置、连接数据库与 Redis 并组装服务层
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := commonlogger.NewLogger(cfg.Log.Level, cfg.Log.Format, "societysync")
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	if cfg.AutoMigrate {
		if _, err := repository.Migrate(ctx, db, logger); err != nil {
			a.close()
			return nil, err
		}
	}

	var kv store.KV
	if cfg.Redis.Enabled {
		a.redis = commonredis.NewRedisClient(&cfg.Redis)
		if err := commonredis.Ping(ctx, a.redis); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		kv = store.NewRedisKV(a.redis)
	} else {
		logger.Warn("Redis disabled, using in-process cache")
		kv = store.NewMemoryKV()
	}

	dispatcher, err := a.buildDispatcher()
	if err != nil {
		a.close()
		return nil, err
	}

	layout := domain.FlatLayout{
		Blocks:        cfg.Society.Blocks,
		Floors:        cfg.Society.Floors,
		UnitsPerFloor: cfg.Society.UnitsPerFloor,
	}
	a.clock = service.NewClock(cfg.Location())
	a.tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	a.users = repository.NewPostgresUsersRepository(db, logger)
	billsRepo := repository.NewPostgresBillsRepository(db, logger)
	complaintsRepo := repository.NewPostgresComplaintsRepository(db, logger)
	visitorsRepo := repository.NewPostgresVisitorsRepository(db, logger)
	notificationsRepo := repository.NewPostgresNotificationsRepository(db, logger)
	pollsRepo := repository.NewPostgresPollsRepository(db, logger)

	announcer := service.NewAnnouncer(notificationsRepo, a.users, dispatcher, logger)

	a.occupancy = service.NewOccupancyService(a.users, kv, cfg.Society.OccupancyCacheTTL, layout, logger)
	a.authSvc = service.NewAuthService(a.users, a.tokens, logger)
	a.userSvc = service.NewUserService(a.users, a.occupancy, layout, a.clock, logger)
	a.billing = service.NewBillingService(billsRepo, a.occupancy, announcer, a.clock, logger)
	a.complaints = service.NewComplaintService(complaintsRepo, logger)
	a.visitors = service.NewVisitorService(visitorsRepo, a.occupancy, announcer, cfg.Society.PhotoMaxBytes, a.clock, logger)
	a.notifications = service.NewNotificationService(notificationsRepo, announcer, logger)
	a.polls = service.NewPollService(pollsRepo, a.clock, logger)
	a.dashboard = service.NewDashboardService(service.DashboardDeps{
		Users:         a.users,
		Complaints:    complaintsRepo,
		Visitors:      visitorsRepo,
		Notifications: notificationsRepo,
		Polls:         pollsRepo,
		Billing:       a.billing,
		Occupancy:     a.occupancy,
	}, logger)

	return a, nil
}

// channelSet 按配置创建的外部通道，未启用的为 nil
type channelSet struct {
	stream  notify.Notifier
	mqtt    notify.Notifier
	webhook notify.Notifier
	sms     notify.Notifier
	email   notify.Notifier
}

// newDispatcher 组装分发器：短信只发访客到访，邮件只发账单通知，其余通道接收全部类型
func newDispatcher(logger *zap.Logger, ch channelSet) *notify.Dispatcher {
	var notifiers []notify.Notifier
	for _, n := range []notify.Notifier{ch.stream, ch.mqtt, ch.webhook} {
		if n != nil {
			notifiers = append(notifiers, n)
		}
	}
	if ch.sms != nil {
		notifiers = append(notifiers, notify.ForTypes(ch.sms, domain.NotificationVisitor))
	}
	if ch.email != nil {
		notifiers = append(notifiers, notify.ForTypes(ch.email, domain.NotificationBilling))
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notify.NewDispatcher(logger, notifiers...)
}

// buildDispatcher 按配置启用外部通知通道
func (a *app) buildDispatcher() (*notify.Dispatcher, error) {
	cfg := a.cfg.Notify
	var ch channelSet

	if cfg.Stream.Enabled {
		if a.redis == nil {
			return nil, fmt.Errorf("NOTIFY_STREAM_ENABLED requires REDIS_ENABLED")
		}
		ch.stream = notify.NewStreamNotifier(a.redis, cfg.Stream.Name, cfg.Stream.MaxLen)
	}
	if cfg.MQTT.Enabled {
		client, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig)
		if err != nil {
			return nil, err
		}
		a.mqtt = client
		ch.mqtt = notify.NewMQTTNotifier(client, cfg.MQTT.TopicPrefix)
	}
	if cfg.Webhook.Enabled {
		ch.webhook = notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout, cfg.Webhook.Retries)
	}
	if cfg.Twilio.Enabled {
		ch.sms = notify.NewSMSNotifier(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromPhone)
	}
	if cfg.SendGrid.Enabled {
		ch.email = notify.NewEmailNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
	}

	dispatcher := newDispatcher(a.logger, ch)
	if dispatcher != nil {
		a.logger.Info("Notification channels enabled", zap.Strings("channels", dispatcher.Channels()))
	}
	return dispatcher, nil
}

func (a *app) close() {
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if err := commonredis.Close(a.redis); err != nil {
		a.logger.Warn("Failed to close redis", zap.Error(err))
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
