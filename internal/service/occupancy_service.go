package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"societysync/internal/domain"
	"societysync/internal/repository"
	"societysync/internal/store"

	"go.uber.org/zap"
)

// occupancyCacheKey 解析结果缓存键，失效时按 occupancy:* 删除
const occupancyCacheKey = "occupancy:flats"

// OccupancyService 房屋占用服务接口
type OccupancyService interface {
	// Resolve 房号 → 占用信息，无住户的房号不出现
	Resolve(ctx context.Context) (map[string]*domain.FlatOccupancy, error)
	// ListFlats 按房号排序的占用列表（含展示标签）
	ListFlats(ctx context.Context) ([]FlatListing, error)
	IsOccupied(ctx context.Context, flat string) (bool, error)
	// AvailableFlats 布局中尚无住户的房号
	AvailableFlats(ctx context.Context) ([]string, error)
	// Invalidate 住户变化后清除缓存
	Invalidate(ctx context.Context)
}

// FlatListing 占用列表项
type FlatListing struct {
	*domain.FlatOccupancy
	Label string `json:"label"`
}

type occupancyService struct {
	usersRepo repository.UsersRepository
	kv        store.KV
	ttl       time.Duration
	layout    domain.FlatLayout
	logger    *zap.Logger
}

// NewOccupancyService 创建 OccupancyService，kv 为空时不缓存
func NewOccupancyService(usersRepo repository.UsersRepository, kv store.KV, ttl time.Duration, layout domain.FlatLayout, logger *zap.Logger) OccupancyService {
	return &occupancyService{
		usersRepo: usersRepo,
		kv:        kv,
		ttl:       ttl,
		layout:    layout,
		logger:    logger,
	}
}

func (s *occupancyService) Resolve(ctx context.Context) (map[string]*domain.FlatOccupancy, error) {
	if s.kv != nil {
		if cached, err := s.kv.Get(ctx, occupancyCacheKey); err == nil {
			var flats map[string]*domain.FlatOccupancy
			if err := json.Unmarshal([]byte(cached), &flats); err == nil {
				return flats, nil
			}
			s.logger.Warn("Discarding malformed occupancy cache entry")
		} else if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Occupancy cache read failed", zap.Error(err))
		}
	}

	rows, err := s.usersRepo.ListResidentRows(ctx)
	if err != nil {
		return nil, err
	}
	flats := domain.ResolveOccupancy(rows)

	if s.kv != nil {
		if b, err := json.Marshal(flats); err == nil {
			if err := s.kv.Set(ctx, occupancyCacheKey, string(b), s.ttl); err != nil {
				s.logger.Warn("Occupancy cache write failed", zap.Error(err))
			}
		}
	}
	return flats, nil
}

func (s *occupancyService) ListFlats(ctx context.Context) ([]FlatListing, error) {
	flats, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	sorted := domain.SortedOccupancy(flats)
	out := make([]FlatListing, 0, len(sorted))
	for _, f := range sorted {
		out = append(out, FlatListing{FlatOccupancy: f, Label: f.Label()})
	}
	return out, nil
}

func (s *occupancyService) IsOccupied(ctx context.Context, flat string) (bool, error) {
	flats, err := s.Resolve(ctx)
	if err != nil {
		return false, err
	}
	_, ok := flats[domain.NormalizeFlat(flat)]
	return ok, nil
}

func (s *occupancyService) AvailableFlats(ctx context.Context) ([]string, error) {
	flats, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, code := range s.layout.Codes() {
		if _, taken := flats[code]; !taken {
			out = append(out, code)
		}
	}
	return out, nil
}

func (s *occupancyService) Invalidate(ctx context.Context) {
	if s.kv == nil {
		return
	}
	if err := store.DeletePattern(ctx, s.kv, "occupancy:*"); err != nil {
		s.logger.Warn("Occupancy cache invalidation failed", zap.Error(err))
	}
}
