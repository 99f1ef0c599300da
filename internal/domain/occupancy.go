package domain

import (
	"sort"
	"strings"
)

// OccupancyType 房屋主要居住类型
type OccupancyType string

const (
	OwnerOccupied  OccupancyType = "Owner-Occupied"
	TenantOccupied OccupancyType = "Tenant-Occupied"
)

// ResidentRow 占用解析的输入行：一个非管理员且有房号的用户
// OwnerName 仅对租户有意义，来自 tenants.owner_id → owners.user_id → users.name
type ResidentRow struct {
	UserID     int64
	Name       string
	Role       Role
	FlatNumber string
	OwnerName  string
}

// Resident 房屋中的一位住户
type Resident struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// FlatOccupancy 单个房号的占用信息
type FlatOccupancy struct {
	FlatNumber       string        `json:"flat_number"`
	Residents        []Resident    `json:"residents"`
	PrimaryOccupancy OccupancyType `json:"primary_occupancy"`
	OwnerName        string        `json:"owner_name,omitempty"`
}

// ResolveOccupancy 按房号聚合住户
// 有业主住户即为 Owner-Occupied，否则为 Tenant-Occupied；无住户的房号不出现在结果中
func ResolveOccupancy(rows []ResidentRow) map[string]*FlatOccupancy {
	flats := make(map[string]*FlatOccupancy)
	for _, r := range rows {
		if r.Role == RoleAdmin || r.FlatNumber == "" {
			continue
		}
		f, ok := flats[r.FlatNumber]
		if !ok {
			f = &FlatOccupancy{FlatNumber: r.FlatNumber}
			flats[r.FlatNumber] = f
		}
		f.Residents = append(f.Residents, Resident{UserID: r.UserID, Name: r.Name, Role: r.Role})
		if r.Role == RoleTenant && f.OwnerName == "" && r.OwnerName != "" {
			f.OwnerName = r.OwnerName
		}
	}
	for _, f := range flats {
		f.PrimaryOccupancy = TenantOccupied
		for _, res := range f.Residents {
			if res.Role == RoleOwner {
				f.PrimaryOccupancy = OwnerOccupied
				break
			}
		}
	}
	return flats
}

// SortedOccupancy 按房号排序返回
func SortedOccupancy(flats map[string]*FlatOccupancy) []*FlatOccupancy {
	out := make([]*FlatOccupancy, 0, len(flats))
	for _, f := range flats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlatNumber < out[j].FlatNumber })
	return out
}

// Label 供选择房号时展示的文本，如 "A101 - 🏠 Owner: Ravi Kumar (Owner)"
func (f *FlatOccupancy) Label() string {
	parts := make([]string, 0, len(f.Residents))
	for _, r := range f.Residents {
		parts = append(parts, r.Name+" ("+r.Role.Title()+")")
	}
	residents := strings.Join(parts, ", ")

	if f.PrimaryOccupancy == OwnerOccupied {
		return f.FlatNumber + " - 🏠 Owner: " + residents
	}
	if f.OwnerName != "" {
		return f.FlatNumber + " - 🏘️ Tenant: " + residents + " (Owner: " + f.OwnerName + ")"
	}
	return f.FlatNumber + " - 🏘️ Tenant: " + residents
}
