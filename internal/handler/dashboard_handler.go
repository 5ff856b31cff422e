package handler

import (
	"net/http"

	"equipment-portal/internal/model"
)

type DashboardHandler struct {
	data model.Dashboard
}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{data: sampleDashboard()}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, h.data)
}

// sampleDashboard is fixed data until the inventory backend exposes real figures.
func sampleDashboard() model.Dashboard {
	return model.Dashboard{
		KPIs: model.DashboardKPIs{
			TotalEquipment: 6,
			MonthlyRevenue: 8750,
			MonthlyDelta:   "+12.5%",
			ActiveRentals:  2,
			Overdue:        0,
		},
		Utilization: model.Utilization{
			Rate: 33,
			Breakdown: []model.UtilizationShare{
				{Label: "Available", Value: 3},
				{Label: "Rented", Value: 2},
				{Label: "Maintenance", Value: 1},
			},
		},
		Categories: []model.CategoryCount{
			{Name: "Camera", Count: 3},
			{Name: "Lens", Count: 1},
			{Name: "Lighting", Count: 1},
			{Name: "Audio", Count: 1},
			{Name: "Stabilizer", Count: 1},
		},
		Activity: []model.ActivityEntry{
			{ID: 1, Text: "Sony FX9 checked out to Production Studios Inc.", Time: "2h ago"},
			{ID: 2, Text: "DJI Ronin returned and inspected.", Time: "6h ago"},
			{ID: 3, Text: "Projector lamp hours reached 95%, schedule replacement.", Time: "Yesterday"},
		},
		Navigation: []model.NavigationEntry{
			{Label: "Overview", Href: "#", Active: true},
			{Label: "Equipment", Href: "#"},
			{Label: "Rentals", Href: "#"},
			{Label: "Maintenance", Href: "#"},
			{Label: "Settings", Href: "#"},
		},
	}
}
