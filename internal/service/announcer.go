package service

import (
	"context"

	"societysync/internal/domain"
	"societysync/internal/notify"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// Announcer 通知写库后的外发，全部为尽力而为
type Announcer struct {
	notificationsRepo repository.NotificationsRepository
	usersRepo         repository.UsersRepository
	dispatcher        *notify.Dispatcher
	logger            *zap.Logger
}

func NewAnnouncer(notificationsRepo repository.NotificationsRepository, usersRepo repository.UsersRepository, dispatcher *notify.Dispatcher, logger *zap.Logger) *Announcer {
	return &Announcer{
		notificationsRepo: notificationsRepo,
		usersRepo:         usersRepo,
		dispatcher:        dispatcher,
		logger:            logger,
	}
}

// publish 写入通知后外发；写入失败只记录日志
func (a *Announcer) publish(ctx context.Context, n *domain.Notification) {
	if _, err := a.notificationsRepo.CreateNotification(ctx, n); err != nil {
		a.logger.Error("Failed to create notification",
			zap.String("title", n.Title),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return
	}
	a.fanOut(ctx, n)
}

// fanOut 外发已提交的通知，定向通知附带该房号住户的联系方式
func (a *Announcer) fanOut(ctx context.Context, n *domain.Notification) {
	if a.dispatcher == nil {
		return
	}
	var recipients []notify.Recipient
	if n.TargetFlat != nil && a.usersRepo != nil {
		contacts, err := a.usersRepo.ListFlatContacts(ctx, *n.TargetFlat)
		if err != nil {
			a.logger.Warn("Failed to resolve flat contacts",
				zap.String("flat_number", *n.TargetFlat),
				zap.Error(err),
			)
		}
		for _, c := range contacts {
			recipients = append(recipients, notify.Recipient{Name: c.Name, Email: c.Email, Phone: c.Phone})
		}
	}
	a.dispatcher.Dispatch(ctx, notify.FromNotification(n, recipients))
}
