package service

import (
	"context"
	"strings"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// MinPollOptions 投票最少选项数
const MinPollOptions = 2

// PollService 投票服务接口
type PollService interface {
	// 管理员
	CreatePoll(ctx context.Context, actor domain.Principal, req CreatePollRequest) (*domain.Poll, error)
	ClosePoll(ctx context.Context, actor domain.Principal, pollID int64) error
	DeletePoll(ctx context.Context, actor domain.Principal, pollID int64) error
	ListAll(ctx context.Context, actor domain.Principal) ([]*domain.Poll, error)

	// 所有登录用户
	ListActive(ctx context.Context, actor domain.Principal) ([]*PollView, error)
	Vote(ctx context.Context, actor domain.Principal, pollID, optionID int64) error
	HasVoted(ctx context.Context, actor domain.Principal, pollID int64) (*int64, error)
	Results(ctx context.Context, actor domain.Principal, pollID int64) (*domain.PollResults, error)
}

// PollView 住户视角的投票（含本人选择）
type PollView struct {
	*domain.Poll
	VotedOptionID *int64 `json:"voted_option_id,omitempty"`
	Open          bool   `json:"open"`
}

// pollService 实现
type pollService struct {
	pollsRepo repository.PollsRepository
	clock     Clock
	logger    *zap.Logger
}

// NewPollService 创建 PollService 实例
func NewPollService(pollsRepo repository.PollsRepository, clock Clock, logger *zap.Logger) PollService {
	return &pollService{
		pollsRepo: pollsRepo,
		clock:     clock,
		logger:    logger,
	}
}

// CreatePollRequest 创建投票请求；EndDate 为当天结束前有效
type CreatePollRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description"`
	EndDate     string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Options     []string `json:"options"`
}

func (s *pollService) CreatePoll(ctx context.Context, actor domain.Principal, req CreatePollRequest) (*domain.Poll, error) {
	// 1. 权限
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	// 2. 参数验证
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	options := make([]string, 0, len(req.Options))
	for _, o := range req.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) < MinPollOptions {
		return nil, domain.NewValidationError("options", "at least 2 non-blank options are required")
	}
	end, err := parseOptionalDate("end_date", req.EndDate, s.clock.Location)
	if err != nil {
		return nil, err
	}
	if end != nil {
		// 截止日当天仍可投票
		eod := end.AddDate(0, 0, 1).Add(-1)
		end = &eod
		if end.Before(s.clock.Current()) {
			return nil, domain.NewValidationError("end_date", "must not be in the past")
		}
	}

	// 3. 投票与选项同一事务写入
	p := &domain.Poll{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   &actor.UserID,
		EndDate:     end,
		IsActive:    true,
	}
	id, err := s.pollsRepo.CreatePoll(ctx, p, options)
	if err != nil {
		return nil, err
	}
	p.PollID = id
	for _, o := range options {
		p.Options = append(p.Options, domain.PollOption{PollID: id, OptionText: o})
	}

	s.logger.Info("Poll created",
		zap.Int64("poll_id", id),
		zap.String("title", p.Title),
		zap.Int("options", len(options)),
	)
	return p, nil
}

func (s *pollService) ClosePoll(ctx context.Context, actor domain.Principal, pollID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.pollsRepo.SetActive(ctx, pollID, false); err != nil {
		return err
	}
	s.logger.Info("Poll closed", zap.Int64("poll_id", pollID))
	return nil
}

func (s *pollService) DeletePoll(ctx context.Context, actor domain.Principal, pollID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.pollsRepo.DeletePoll(ctx, pollID); err != nil {
		return err
	}
	s.logger.Info("Poll deleted", zap.Int64("poll_id", pollID))
	return nil
}

func (s *pollService) ListAll(ctx context.Context, actor domain.Principal) ([]*domain.Poll, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.pollsRepo.ListPolls(ctx, false)
}

func (s *pollService) ListActive(ctx context.Context, actor domain.Principal) ([]*PollView, error) {
	polls, err := s.pollsRepo.ListPolls(ctx, true)
	if err != nil {
		return nil, err
	}
	now := s.clock.Current()
	views := make([]*PollView, 0, len(polls))
	for _, p := range polls {
		options, err := s.pollsRepo.ListOptions(ctx, p.PollID)
		if err != nil {
			return nil, err
		}
		p.Options = options
		voted, err := s.pollsRepo.VotedOption(ctx, p.PollID, actor.UserID)
		if err != nil {
			return nil, err
		}
		views = append(views, &PollView{Poll: p, VotedOptionID: voted, Open: p.Open(now)})
	}
	return views, nil
}

// Vote 投票需激活且未过截止日期，选项必须属于该投票
func (s *pollService) Vote(ctx context.Context, actor domain.Principal, pollID, optionID int64) error {
	poll, err := s.pollsRepo.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if !poll.Open(s.clock.Current()) {
		return domain.NewValidationError("poll_id", "poll is closed")
	}
	options, err := s.pollsRepo.ListOptions(ctx, pollID)
	if err != nil {
		return err
	}
	found := false
	for _, o := range options {
		if o.OptionID == optionID {
			found = true
			break
		}
	}
	if !found {
		return domain.NewValidationError("option_id", "option does not belong to this poll")
	}

	if err := s.pollsRepo.CastVote(ctx, pollID, optionID, actor.UserID); err != nil {
		return err
	}
	s.logger.Info("Vote cast",
		zap.Int64("poll_id", pollID),
		zap.Int64("option_id", optionID),
		zap.Int64("user_id", actor.UserID),
	)
	return nil
}

func (s *pollService) HasVoted(ctx context.Context, actor domain.Principal, pollID int64) (*int64, error) {
	if _, err := s.pollsRepo.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	return s.pollsRepo.VotedOption(ctx, pollID, actor.UserID)
}

func (s *pollService) Results(ctx context.Context, actor domain.Principal, pollID int64) (*domain.PollResults, error) {
	poll, err := s.pollsRepo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	options, err := s.pollsRepo.ListOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}
	ranked, total := domain.RankOptions(options)
	poll.TotalVotes = total
	return &domain.PollResults{Poll: *poll, TotalVotes: total, Options: ranked}, nil
}
