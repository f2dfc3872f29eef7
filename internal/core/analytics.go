package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gearguard/pkg/domain"
)

// Threshold for the breakdown-count predictive alert.
const breakdownAlertThreshold = 3

// KPIs are the dashboard headline counters, computed on read.
type KPIs struct {
	EquipmentCount    int `json:"equipment_count"`
	OpenRequestCount  int `json:"open_request_count"`
	OverdueCount      int `json:"overdue_count"`
	CriticalEquipment int `json:"critical_equipment"`
}

// TypeSplit partitions requests by request type.
type TypeSplit struct {
	Preventive int `json:"preventive"`
	Corrective int `json:"corrective"`
}

// TeamLoad reports the total request count for one team. Teams with no
// requests still appear with a zero count.
type TeamLoad struct {
	TeamID   int    `json:"team_id"`
	TeamName string `json:"team_name"`
	Requests int    `json:"request_count"`
}

// TechnicianLoad reports the open-request count for one technician.
type TechnicianLoad struct {
	EmployeeID int    `json:"employee_id"`
	Name       string `json:"name"`
	Open       int    `json:"open"`
}

// AlertSeverity grades a predictive alert.
type AlertSeverity string

// Alert severities. Critical outranks warning.
const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
)

// PredictiveAlert flags equipment trending toward failure.
type PredictiveAlert struct {
	EquipmentID   int           `json:"equipment_id"`
	EquipmentName string        `json:"equipment_name"`
	HealthScore   int           `json:"health_score"`
	Breakdowns    int           `json:"breakdowns"`
	Severity      AlertSeverity `json:"severity"`
	Reasons       []string      `json:"reasons"`
}

// Dashboard aggregates all analytics views in one read snapshot.
type Dashboard struct {
	KPIs        KPIs              `json:"kpis"`
	TypeSplit   TypeSplit         `json:"type_split"`
	TeamLoads   []TeamLoad        `json:"team_loads"`
	Technicians []TechnicianLoad  `json:"technicians"`
	Alerts      []PredictiveAlert `json:"alerts"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// GetKPIs computes the headline counters: active non-scrapped equipment,
// open requests, overdue open requests, and critical equipment.
func (s *Service) GetKPIs(ctx context.Context) (KPIs, error) {
	var kpis KPIs
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		kpis = s.kpisFrom(view)
		return nil
	})
	return kpis, err
}

func (s *Service) kpisFrom(view domain.TransactionView) KPIs {
	today := s.Today()
	var kpis KPIs
	for _, equipment := range view.ListEquipment() {
		if !equipment.Active || equipment.IsScrapped {
			continue
		}
		kpis.EquipmentCount++
		if equipment.HealthScore < criticalThreshold {
			kpis.CriticalEquipment++
		}
	}
	for _, request := range view.ListRequests() {
		if !request.Open() {
			continue
		}
		kpis.OpenRequestCount++
		if request.ScheduledDate != nil && request.ScheduledDate.Before(today) {
			kpis.OverdueCount++
		}
	}
	return kpis
}

// GetTypeSplit partitions all requests into preventive and corrective.
func (s *Service) GetTypeSplit(ctx context.Context) (TypeSplit, error) {
	var split TypeSplit
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		split = typeSplitFrom(view)
		return nil
	})
	return split, err
}

func typeSplitFrom(view domain.TransactionView) TypeSplit {
	var split TypeSplit
	for _, request := range view.ListRequests() {
		switch request.RequestType {
		case domain.RequestPreventive:
			split.Preventive++
		case domain.RequestCorrective:
			split.Corrective++
		}
	}
	return split
}

// GetTeamLoads reports request counts per team regardless of state, one
// entry per existing team in store order, zero counts included.
func (s *Service) GetTeamLoads(ctx context.Context) ([]TeamLoad, error) {
	var loads []TeamLoad
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		loads = teamLoadsFrom(view)
		return nil
	})
	return loads, err
}

func teamLoadsFrom(view domain.TransactionView) []TeamLoad {
	counts := make(map[int]int)
	for _, request := range view.ListRequests() {
		if request.MaintenanceTeamID != nil {
			counts[*request.MaintenanceTeamID]++
		}
	}
	teams := view.ListTeams()
	loads := make([]TeamLoad, 0, len(teams))
	for _, team := range teams {
		loads = append(loads, TeamLoad{
			TeamID:   team.ID,
			TeamName: team.Name,
			Requests: counts[team.ID],
		})
	}
	return loads
}

// GetTechnicianLoads reports open requests per technician, sorted by count
// descending. Ties keep the technicians' store order.
func (s *Service) GetTechnicianLoads(ctx context.Context) ([]TechnicianLoad, error) {
	var loads []TechnicianLoad
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		loads = technicianLoadsFrom(view)
		return nil
	})
	return loads, err
}

func technicianLoadsFrom(view domain.TransactionView) []TechnicianLoad {
	open := make(map[int]int)
	for _, request := range view.ListRequests() {
		if request.Open() && request.TechnicianID != nil {
			open[*request.TechnicianID]++
		}
	}
	technicians := view.SearchEmployees(domain.Domain{
		{Field: "is_technician", Operator: domain.OpEq, Value: true},
		{Field: "active", Operator: domain.OpEq, Value: true},
	})
	loads := make([]TechnicianLoad, 0, len(technicians))
	for _, technician := range technicians {
		loads = append(loads, TechnicianLoad{
			EmployeeID: technician.ID,
			Name:       technician.Name,
			Open:       open[technician.ID],
		})
	}
	sort.SliceStable(loads, func(i, j int) bool {
		return loads[i].Open > loads[j].Open
	})
	return loads
}

// GetPredictiveAlerts scans active non-scrapped equipment for failure
// signals: three or more recent breakdowns and/or a critical health score.
// Each triggered condition contributes its own reason; severity is critical
// when the health score is below the critical threshold, warning otherwise.
func (s *Service) GetPredictiveAlerts(ctx context.Context) ([]PredictiveAlert, error) {
	var alerts []PredictiveAlert
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		alerts = s.predictiveAlertsFrom(view)
		return nil
	})
	return alerts, err
}

func (s *Service) predictiveAlertsFrom(view domain.TransactionView) []PredictiveAlert {
	windowStart := s.now().Add(-breakdownWindow)
	var alerts []PredictiveAlert
	for _, equipment := range view.ListEquipment() {
		if !equipment.Active || equipment.IsScrapped {
			continue
		}
		breakdowns := len(view.SearchRequests(domain.Domain{
			{Field: "equipment_id", Operator: domain.OpEq, Value: equipment.ID},
			{Field: "request_type", Operator: domain.OpEq, Value: domain.RequestCorrective},
			{Field: "state", Operator: domain.OpIn, Value: domain.ClosedStates()},
			{Field: "create_date", Operator: domain.OpGte, Value: windowStart},
		}))

		var reasons []string
		if breakdowns >= breakdownAlertThreshold {
			reasons = append(reasons, fmt.Sprintf("%d corrective breakdowns in last 30 days", breakdowns))
		}
		if equipment.HealthScore < criticalThreshold {
			reasons = append(reasons, fmt.Sprintf("Health score critical: %d/100", equipment.HealthScore))
		}
		if len(reasons) == 0 {
			continue
		}

		severity := AlertWarning
		if equipment.HealthScore < criticalThreshold {
			severity = AlertCritical
		}
		alerts = append(alerts, PredictiveAlert{
			EquipmentID:   equipment.ID,
			EquipmentName: equipment.Name,
			HealthScore:   equipment.HealthScore,
			Breakdowns:    breakdowns,
			Severity:      severity,
			Reasons:       reasons,
		})
	}
	return alerts
}

// GetDashboard assembles all analytics views from one consistent snapshot.
func (s *Service) GetDashboard(ctx context.Context) (Dashboard, error) {
	var dashboard Dashboard
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		dashboard = Dashboard{
			KPIs:        s.kpisFrom(view),
			TypeSplit:   typeSplitFrom(view),
			TeamLoads:   teamLoadsFrom(view),
			Technicians: technicianLoadsFrom(view),
			Alerts:      s.predictiveAlertsFrom(view),
			GeneratedAt: s.now(),
		}
		return nil
	})
	return dashboard, err
}
