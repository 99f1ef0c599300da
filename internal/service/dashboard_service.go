package service

import (
	"context"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// RecentComplaintsLimit 管理员首页最近投诉条数
const RecentComplaintsLimit = 5

// DashboardService 首页统计服务接口
type DashboardService interface {
	SocietyStats(ctx context.Context, actor domain.Principal) (*domain.SocietyStats, error)
	ResidentStats(ctx context.Context, actor domain.Principal) (*domain.ResidentStats, error)
}

// dashboardService 实现
type dashboardService struct {
	usersRepo         repository.UsersRepository
	complaintsRepo    repository.ComplaintsRepository
	visitorsRepo      repository.VisitorsRepository
	notificationsRepo repository.NotificationsRepository
	pollsRepo         repository.PollsRepository
	billing           BillingService
	occupancy         OccupancyService
	logger            *zap.Logger
}

// DashboardDeps 首页统计依赖
type DashboardDeps struct {
	Users         repository.UsersRepository
	Complaints    repository.ComplaintsRepository
	Visitors      repository.VisitorsRepository
	Notifications repository.NotificationsRepository
	Polls         repository.PollsRepository
	Billing       BillingService
	Occupancy     OccupancyService
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(deps DashboardDeps, logger *zap.Logger) DashboardService {
	return &dashboardService{
		usersRepo:         deps.Users,
		complaintsRepo:    deps.Complaints,
		visitorsRepo:      deps.Visitors,
		notificationsRepo: deps.Notifications,
		pollsRepo:         deps.Polls,
		billing:           deps.Billing,
		occupancy:         deps.Occupancy,
		logger:            logger,
	}
}

func (s *dashboardService) SocietyStats(ctx context.Context, actor domain.Principal) (*domain.SocietyStats, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	// 1. 账单（先做逾期扫描）
	billStats, err := s.billing.Stats(ctx, actor, "")
	if err != nil {
		return nil, err
	}

	// 2. 住户
	roles, err := s.usersRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	flats, err := s.occupancy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	// 3. 投诉与访客
	byStatus, err := s.complaintsRepo.CountByStatus(ctx, "")
	if err != nil {
		return nil, err
	}
	recent, err := s.complaintsRepo.ListComplaints(ctx, repository.ComplaintFilters{Limit: RecentComplaintsLimit})
	if err != nil {
		return nil, err
	}
	inside, err := s.visitorsRepo.CountInside(ctx, "")
	if err != nil {
		return nil, err
	}

	stats := &domain.SocietyStats{
		TotalOwners:      roles[domain.RoleOwner],
		TotalTenants:     roles[domain.RoleTenant],
		PendingBills:     billStats.ByStatus[domain.BillPending].Count,
		OpenComplaints:   byStatus[domain.ComplaintOpen] + byStatus[domain.ComplaintInProgress],
		CurrentVisitors:  inside,
		BillStats:        *billStats,
		ComplaintStats:   byStatus,
		RecentComplaints: make([]domain.Complaint, 0, len(recent)),
	}
	for _, f := range flats {
		switch f.PrimaryOccupancy {
		case domain.OwnerOccupied:
			stats.OwnerOccupied++
		case domain.TenantOccupied:
			stats.TenantOccupied++
		}
	}
	for _, c := range recent {
		stats.RecentComplaints = append(stats.RecentComplaints, *c)
	}
	return stats, nil
}

func (s *dashboardService) ResidentStats(ctx context.Context, actor domain.Principal) (*domain.ResidentStats, error) {
	if err := actor.RequireResident(); err != nil {
		return nil, err
	}
	flat := actor.FlatNumber

	billStats, err := s.billing.Stats(ctx, actor, flat)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.complaintsRepo.CountByStatus(ctx, flat)
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationsRepo.UnreadCount(ctx, actor.UserID, flat)
	if err != nil {
		return nil, err
	}
	activePolls, err := s.pollsRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	inside, err := s.visitorsRepo.CountInside(ctx, flat)
	if err != nil {
		return nil, err
	}

	return &domain.ResidentStats{
		FlatNumber:          flat,
		PendingBills:        billStats.ByStatus[domain.BillPending].Count,
		OverdueBills:        billStats.ByStatus[domain.BillOverdue].Count,
		OpenComplaints:      byStatus[domain.ComplaintOpen] + byStatus[domain.ComplaintInProgress],
		UnreadNotifications: unread,
		ActivePolls:         activePolls,
		VisitorsInside:      inside,
	}, nil
}
