package service

import "time"

// Clock 社区时区下的当前时间
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock 创建时钟，loc 为空时使用 UTC
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Current 当前时间（社区时区）
func (c Clock) Current() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// Today 社区时区下今天的零点
func (c Clock) Today() time.Time {
	now := c.Current()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
