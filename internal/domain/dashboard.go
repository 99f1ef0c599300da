package domain

// SocietyStats 管理员首页统计
type SocietyStats struct {
	TotalOwners      int                     `json:"total_owners"`
	TotalTenants     int                     `json:"total_tenants"`
	PendingBills     int                     `json:"pending_bills"`
	OpenComplaints   int                     `json:"open_complaints"`
	CurrentVisitors  int                     `json:"current_visitors"`
	OwnerOccupied    int                     `json:"owner_occupied"`
	TenantOccupied   int                     `json:"tenant_occupied"`
	BillStats        BillStats               `json:"bill_stats"`
	ComplaintStats   map[ComplaintStatus]int `json:"complaint_stats"`
	RecentComplaints []Complaint             `json:"recent_complaints"`
}

// ResidentStats 住户首页统计
type ResidentStats struct {
	FlatNumber          string `json:"flat_number"`
	PendingBills        int    `json:"pending_bills"`
	OverdueBills        int    `json:"overdue_bills"`
	OpenComplaints      int    `json:"open_complaints"`
	UnreadNotifications int    `json:"unread_notifications"`
	ActivePolls         int    `json:"active_polls"`
	VisitorsInside      int    `json:"visitors_inside"`
}

// Profile 当前用户资料，租户附带租约信息
type Profile struct {
	User               User    `json:"user"`
	Owner              *Owner  `json:"owner,omitempty"`
	Tenant             *Tenant `json:"tenant,omitempty"`
	LeaseRemainingDays *int    `json:"lease_remaining_days,omitempty"`
}
