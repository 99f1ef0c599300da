package notify

import (
	"context"
	"time"

	"societysync/internal/domain"

	"go.uber.org/zap"
)

// Recipient 外发通道的接收人
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Message 已提交通知的外发载荷
// TargetFlat 为空表示全体广播
type Message struct {
	NotificationID int64                       `json:"notification_id,omitempty"`
	Title          string                      `json:"title"`
	Body           string                      `json:"message"`
	Type           domain.NotificationType     `json:"type"`
	Priority       domain.NotificationPriority `json:"priority"`
	TargetFlat     string                      `json:"target_flat,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	Recipients     []Recipient                 `json:"-"`
}

// FromNotification 由通知记录构造外发消息
func FromNotification(n *domain.Notification, recipients []Recipient) *Message {
	msg := &Message{
		NotificationID: n.NotificationID,
		Title:          n.Title,
		Body:           n.Message,
		Type:           n.Type,
		Priority:       n.Priority,
		CreatedAt:      n.CreatedAt,
		Recipients:     recipients,
	}
	if n.TargetFlat != nil {
		msg.TargetFlat = *n.TargetFlat
	}
	return msg
}

// Notifier 一个外发通道
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg *Message) error
}

// Dispatcher 依次调用全部通道，失败只记录日志
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewDispatcher 创建分发器，notifiers 为空时 Dispatch 为空操作
func NewDispatcher(logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Dispatch 外发消息，返回成功的通道数
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) int {
	if d == nil {
		return 0
	}
	ok := 0
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			d.logger.Warn("Notification delivery failed",
				zap.String("channel", n.Name()),
				zap.Int64("notification_id", msg.NotificationID),
				zap.String("target_flat", msg.TargetFlat),
				zap.Error(err),
			)
			continue
		}
		ok++
	}
	return ok
}

// Channels 已启用的通道名
func (d *Dispatcher) Channels() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

type typeFilter struct {
	Notifier
	types map[domain.NotificationType]bool
}

// ForTypes 只在消息类型匹配时调用 n
func ForTypes(n Notifier, types ...domain.NotificationType) Notifier {
	f := &typeFilter{Notifier: n, types: make(map[domain.NotificationType]bool, len(types))}
	for _, t := range types {
		f.types[t] = true
	}
	return f
}

func (f *typeFilter) Notify(ctx context.Context, msg *Message) error {
	if !f.types[msg.Type] {
		return nil
	}
	return f.Notifier.Notify(ctx, msg)
}
