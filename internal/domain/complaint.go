package domain

import "time"

// ComplaintStatus 投诉状态
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "open"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintResolved   ComplaintStatus = "resolved"
	ComplaintClosed     ComplaintStatus = "closed"
)

// Valid 是否为已知状态
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintOpen, ComplaintInProgress, ComplaintResolved, ComplaintClosed:
		return true
	}
	return false
}

// Active 是否仍待处理（open 或 in_progress）
func (s ComplaintStatus) Active() bool {
	return s == ComplaintOpen || s == ComplaintInProgress
}

// Priority 优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid 是否为已知优先级
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ComplaintCategories 投诉分类
var ComplaintCategories = []string{
	"maintenance", "plumbing", "electrical", "security",
	"cleanliness", "parking", "noise", "other",
}

// ValidComplaintCategory 分类是否已知
func ValidComplaintCategory(c string) bool {
	for _, v := range ComplaintCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Complaint 投诉（对应 complaints 表）
type Complaint struct {
	ComplaintID   int64           `json:"complaint_id"`
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name,omitempty"`
	FlatNumber    string          `json:"flat_number"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Priority      Priority        `json:"priority"`
	Status        ComplaintStatus `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	AdminResponse *string         `json:"admin_response,omitempty"`
}

// ComplaintStats 投诉统计
type ComplaintStats struct {
	Total      int                     `json:"total"`
	ByStatus   map[ComplaintStatus]int `json:"by_status"`
	ByPriority map[Priority]int        `json:"by_priority"`
}
