package domain

import "time"

// NotificationType 通知类型
type NotificationType string

const (
	NotificationGeneral     NotificationType = "general"
	NotificationMaintenance NotificationType = "maintenance"
	NotificationEmergency   NotificationType = "emergency"
	NotificationBilling     NotificationType = "billing"
	NotificationVisitor     NotificationType = "visitor"
)

// Valid 是否为已知类型
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationGeneral, NotificationMaintenance, NotificationEmergency, NotificationBilling, NotificationVisitor:
		return true
	}
	return false
}

// NotificationPriority 通知优先级
type NotificationPriority string

const (
	NotificationLow    NotificationPriority = "low"
	NotificationNormal NotificationPriority = "normal"
	NotificationHigh   NotificationPriority = "high"
)

// Valid 是否为已知优先级
func (p NotificationPriority) Valid() bool {
	return p == NotificationLow || p == NotificationNormal || p == NotificationHigh
}

// Notification 通知（对应 notifications 表）
// TargetFlat 为空表示全体可见，否则仅该房号住户可见
type Notification struct {
	NotificationID int64                `json:"notification_id"`
	Title          string               `json:"title"`
	Message        string               `json:"message"`
	Type           NotificationType     `json:"type"`
	Priority       NotificationPriority `json:"priority"`
	TargetFlat     *string              `json:"target_flat,omitempty"`
	CreatedBy      *int64               `json:"created_by,omitempty"`
	CreatedByName  string               `json:"created_by_name,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// VisibleTo 该通知对某房号住户是否可见
func (n *Notification) VisibleTo(flat string) bool {
	return n.TargetFlat == nil || *n.TargetFlat == flat
}

// UserNotification 某用户视角下的通知（含已读标记）
type UserNotification struct {
	Notification
	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// NotificationSummary 管理员视角：通知及已读人数
type NotificationSummary struct {
	Notification
	ReadCount int `json:"read_count"`
}
