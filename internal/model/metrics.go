package model

// PlatformMetrics aggregates marketplace counters for the admin dashboard
type PlatformMetrics struct {
	TotalUsers          int64         `json:"total_users"`
	TotalOrders         int64         `json:"total_orders"`
	TotalDemands        int64         `json:"total_demands"`
	TotalProducts       int64         `json:"total_products"`
	OrdersByStatus      []StatusCount `json:"orders_by_status"`
	UsersByRole         []RoleCount   `json:"users_by_role"`
	RecentActivityCount int64         `json:"recent_activity_count"` // notifications in the last 7 days
}

// StatusCount is one group of a GROUP BY status query
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// RoleCount is one group of a GROUP BY role query
type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}
