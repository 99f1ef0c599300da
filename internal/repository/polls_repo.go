package repository

import (
	"context"

	"societysync/internal/domain"
)

// PollsRepository 投票Repository接口
type PollsRepository interface {
	// CreatePoll 在同一事务中写入投票与全部选项
	CreatePoll(ctx context.Context, p *domain.Poll, options []string) (int64, error)
	GetPoll(ctx context.Context, pollID int64) (*domain.Poll, error)
	ListPolls(ctx context.Context, activeOnly bool) ([]*domain.Poll, error)
	ListOptions(ctx context.Context, pollID int64) ([]domain.PollOption, error)
	SetActive(ctx context.Context, pollID int64, active bool) error
	DeletePoll(ctx context.Context, pollID int64) error

	// CastVote 在同一事务中插入投票并递增选项计数；重复投票返回 domain.ErrDuplicateVote
	CastVote(ctx context.Context, pollID, optionID, userID int64) error
	// VotedOption 用户在该投票中所选选项，未投票时返回 nil
	VotedOption(ctx context.Context, pollID, userID int64) (*int64, error)
	CountActive(ctx context.Context) (int, error)
}
