package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Poll 投票（对应 polls 表）
type Poll struct {
	PollID      int64        `json:"poll_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	CreatedBy   *int64       `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	IsActive    bool         `json:"is_active"`
	Options     []PollOption `json:"options,omitempty"`
	TotalVotes  int          `json:"total_votes"`
}

// Open 投票是否仍可投：激活且未过截止日期
func (p *Poll) Open(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	return p.EndDate == nil || !now.After(*p.EndDate)
}

// PollOption 投票选项
type PollOption struct {
	OptionID   int64  `json:"option_id"`
	PollID     int64  `json:"poll_id"`
	OptionText string `json:"option_text"`
	VoteCount  int    `json:"vote_count"`
}

// OptionResult 选项结果（含百分比）
type OptionResult struct {
	PollOption
	Percentage decimal.Decimal `json:"percentage"`
}

// PollResults 投票结果
type PollResults struct {
	Poll       Poll           `json:"poll"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
}

// RankOptions 按票数降序排列并计算百分比；总票数为 0 时百分比均为 0
func RankOptions(options []PollOption) ([]OptionResult, int) {
	total := 0
	for _, o := range options {
		total += o.VoteCount
	}
	ranked := make([]OptionResult, 0, len(options))
	for _, o := range options {
		pct := decimal.Zero
		if total > 0 {
			pct = decimal.NewFromInt(int64(o.VoteCount)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
		}
		ranked = append(ranked, OptionResult{PollOption: o, Percentage: pct})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].VoteCount > ranked[j].VoteCount })
	return ranked, total
}
