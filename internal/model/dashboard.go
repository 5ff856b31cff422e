package model

type Dashboard struct {
	KPIs        DashboardKPIs     `json:"kpis"`
	Utilization Utilization       `json:"utilization"`
	Categories  []CategoryCount   `json:"categories"`
	Activity    []ActivityEntry   `json:"activity"`
	Navigation  []NavigationEntry `json:"navigation"`
}

type DashboardKPIs struct {
	TotalEquipment int    `json:"total_equipment"`
	MonthlyRevenue int64  `json:"monthly_revenue"`
	MonthlyDelta   string `json:"monthly_delta"`
	ActiveRentals  int    `json:"active_rentals"`
	Overdue        int    `json:"overdue"`
}

type Utilization struct {
	Rate      int                `json:"rate"`
	Breakdown []UtilizationShare `json:"breakdown"`
}

type UtilizationShare struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ActivityEntry struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Time string `json:"time"`
}

type NavigationEntry struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Active bool   `json:"active,omitempty"`
}
