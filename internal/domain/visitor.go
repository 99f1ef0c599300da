package domain

import "time"

// VisitorStatus 访客状态
type VisitorStatus string

const (
	VisitorIn  VisitorStatus = "in"
	VisitorOut VisitorStatus = "out"
)

// Visitor 访客记录（对应 visitors 表）
// 照片单独读取，列表中只返回 HasPhoto
type Visitor struct {
	VisitorID     int64         `json:"visitor_id"`
	FlatNumber    string        `json:"flat_number"`
	VisitorName   string        `json:"visitor_name"`
	VisitorPhone  string        `json:"visitor_phone,omitempty"`
	Purpose       string        `json:"purpose,omitempty"`
	EntryTime     time.Time     `json:"entry_time"`
	ExitTime      *time.Time    `json:"exit_time,omitempty"`
	VehicleNumber string        `json:"vehicle_number,omitempty"`
	LoggedBy      *int64        `json:"logged_by,omitempty"`
	Status        VisitorStatus `json:"status"`
	HasPhoto      bool          `json:"has_photo"`
}

// VisitorPhoto 访客照片
type VisitorPhoto struct {
	Data        []byte
	ContentType string
}

// VisitorFilter 访客列表过滤条件
type VisitorFilter struct {
	FlatNumber string
	Status     VisitorStatus
	Date       *time.Time
	Limit      int
}
