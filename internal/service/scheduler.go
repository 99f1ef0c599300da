package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepJobTimeout 单次逾期扫描超时
const SweepJobTimeout = 2 * time.Minute

// Scheduler 后台定时任务（逾期账单扫描）
type Scheduler struct {
	cron    *cron.Cron
	billing BillingService
	logger  *zap.Logger
}

// NewScheduler 按社区时区注册逾期扫描任务
func NewScheduler(billing BillingService, spec string, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		billing: billing,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("failed to schedule overdue sweep %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), SweepJobTimeout)
	defer cancel()
	n, err := s.billing.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("Overdue sweep failed", zap.Error(err))
		return
	}
	s.logger.Debug("Overdue sweep finished", zap.Int64("marked", n))
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduled overdue bill sweep")
}

// Stop 停止调度并等待正在执行的任务
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}
