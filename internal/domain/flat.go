package domain

import (
	"fmt"
	"strings"
)

// FlatLayout 社区房号布局：楼栋 × 楼层 × 每层户数
// 房号格式 {block}{floor}{unit:02d}，如 A101
type FlatLayout struct {
	Blocks        []string
	Floors        int
	UnitsPerFloor int
}

// DefaultFlatLayout A–D 栋，1–5 层，每层 01–05 户
var DefaultFlatLayout = FlatLayout{
	Blocks:        []string{"A", "B", "C", "D"},
	Floors:        5,
	UnitsPerFloor: 5,
}

// Codes 按楼栋、楼层、户号顺序返回全部房号
func (l FlatLayout) Codes() []string {
	codes := make([]string, 0, len(l.Blocks)*l.Floors*l.UnitsPerFloor)
	for _, b := range l.Blocks {
		for floor := 1; floor <= l.Floors; floor++ {
			for unit := 1; unit <= l.UnitsPerFloor; unit++ {
				codes = append(codes, fmt.Sprintf("%s%d%02d", strings.ToUpper(b), floor, unit))
			}
		}
	}
	return codes
}

// Contains 房号是否属于该布局
func (l FlatLayout) Contains(code string) bool {
	code = NormalizeFlat(code)
	for _, c := range l.Codes() {
		if c == code {
			return true
		}
	}
	return false
}

// NormalizeFlat 去除空白并转为大写
func NormalizeFlat(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizePhone 去除非数字字符；结果不足 10 位时返回 false
func NormalizePhone(phone string) (string, bool) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return digits, len(digits) == 10
}
