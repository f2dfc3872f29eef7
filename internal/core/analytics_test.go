package core

import (
	"context"
	"testing"

	"gearguard/pkg/domain"
)

func TestGetKPIs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	healthy := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Healthy")})
	critical := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Critical")})
	scrapped := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Scrapped")})
	if ok, err := svc.ScrapEquipment(ctx, scrapped.ID); err != nil || !ok {
		t.Fatalf("scrap: ok=%v err=%v", ok, err)
	}
	if _, err := svc.WriteEquipment(ctx, []int{critical.ID}, domain.EquipmentPatch{HealthScore: domain.Ptr(20)}); err != nil {
		t.Fatalf("write score: %v", err)
	}

	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:       domain.Ptr("Overdue open"),
		EquipmentID:   domain.Ptr(healthy.ID),
		ScheduledDate: daysFromNow(-2),
	})
	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:     domain.Ptr("Open"),
		EquipmentID: domain.Ptr(healthy.ID),
		State:       domain.Ptr(domain.StateInProgress),
	})
	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:       domain.Ptr("Closed"),
		EquipmentID:   domain.Ptr(healthy.ID),
		State:         domain.Ptr(domain.StateRepaired),
		DurationHours: domain.Ptr(1.0),
	})

	kpis, err := svc.GetKPIs(ctx)
	if err != nil {
		t.Fatalf("kpis: %v", err)
	}
	// The breakdown above drags Healthy's score down but not below critical.
	want := KPIs{EquipmentCount: 2, OpenRequestCount: 2, OverdueCount: 1, CriticalEquipment: 1}
	if kpis != want {
		t.Fatalf("kpis = %+v, want %+v", kpis, want)
	}
}

func TestGetTypeSplit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	for i := 0; i < 2; i++ {
		mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
			Subject:     domain.Ptr("Planned"),
			RequestType: domain.Ptr(domain.RequestPreventive),
		})
	}
	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{Subject: domain.Ptr("Broken")})

	split, err := svc.GetTypeSplit(ctx)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if split.Preventive != 2 || split.Corrective != 1 {
		t.Fatalf("split = %+v", split)
	}
}

func TestGetTeamLoadsIncludesIdleTeams(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	busy, err := svc.CreateTeam(ctx, domain.MaintenanceTeamPatch{Name: domain.Ptr("Busy")})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	idle, err := svc.CreateTeam(ctx, domain.MaintenanceTeamPatch{Name: domain.Ptr("Idle")})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:           domain.Ptr("One"),
		MaintenanceTeamID: domain.Ptr(busy.ID),
	})
	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:           domain.Ptr("Two"),
		MaintenanceTeamID: domain.Ptr(busy.ID),
	})
	// Team counts are history, not backlog: closed requests count too.
	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:           domain.Ptr("Done"),
		MaintenanceTeamID: domain.Ptr(busy.ID),
		State:             domain.Ptr(domain.StateRepaired),
		DurationHours:     domain.Ptr(1.0),
	})

	loads, err := svc.GetTeamLoads(ctx)
	if err != nil {
		t.Fatalf("loads: %v", err)
	}
	if len(loads) != 2 {
		t.Fatalf("load count = %d", len(loads))
	}
	if loads[0].TeamID != busy.ID || loads[0].Requests != 3 {
		t.Fatalf("busy load = %+v", loads[0])
	}
	if loads[1].TeamID != idle.ID || loads[1].Requests != 0 {
		t.Fatalf("idle team must appear with zero count: %+v", loads[1])
	}
}

func TestGetTechnicianLoadsStableDescending(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	names := []string{"A", "B", "C", "D"}
	counts := []int{2, 5, 5, 0}
	ids := make([]int, len(names))
	for i, name := range names {
		employee, err := svc.CreateEmployee(ctx, domain.EmployeePatch{
			Name:         domain.Ptr(name),
			IsTechnician: domain.Ptr(true),
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		ids[i] = employee.ID
		for j := 0; j < counts[i]; j++ {
			mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
				Subject:      domain.Ptr("Work"),
				TechnicianID: domain.Ptr(employee.ID),
			})
		}
	}

	loads, err := svc.GetTechnicianLoads(ctx)
	if err != nil {
		t.Fatalf("loads: %v", err)
	}
	// B and C tie at 5; the sort is stable so B keeps its earlier position.
	wantOrder := []string{"B", "C", "A", "D"}
	if len(loads) != len(wantOrder) {
		t.Fatalf("load count = %d", len(loads))
	}
	for i, want := range wantOrder {
		if loads[i].Name != want {
			t.Fatalf("position %d = %s, want %s (full: %+v)", i, loads[i].Name, want, loads)
		}
	}
	if loads[0].Open != 5 || loads[2].Open != 2 || loads[3].Open != 0 {
		t.Fatalf("counts wrong: %+v", loads)
	}
}

func TestPredictiveAlertScenarios(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	addBreakdowns := func(equipmentID, n int) {
		for i := 0; i < n; i++ {
			mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
				Subject:     domain.Ptr("Breakdown"),
				EquipmentID: domain.Ptr(equipmentID),
				RequestType: domain.Ptr(domain.RequestCorrective),
				State:       domain.Ptr(domain.StateRepaired),
			})
		}
	}

	// Three breakdowns push the score to 55: breakdown reason only, warning.
	frequent := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Frequent")})
	addBreakdowns(frequent.ID, 3)

	// Seven breakdowns clamp the score to 0: both reasons, critical.
	failing := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Failing")})
	addBreakdowns(failing.ID, 7)

	// A low score with no recent breakdowns: health reason only, critical.
	weak := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Weak")})
	if _, err := svc.WriteEquipment(ctx, []int{weak.ID}, domain.EquipmentPatch{HealthScore: domain.Ptr(30)}); err != nil {
		t.Fatalf("write score: %v", err)
	}

	// Healthy and scrapped equipment never alert.
	mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Fine")})
	scrapped := mustCreateEquipment(t, svc, domain.EquipmentPatch{Name: domain.Ptr("Gone")})
	addBreakdowns(scrapped.ID, 4)
	if ok, err := svc.ScrapEquipment(ctx, scrapped.ID); err != nil || !ok {
		t.Fatalf("scrap: ok=%v err=%v", ok, err)
	}

	alerts, err := svc.GetPredictiveAlerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	byID := make(map[int]PredictiveAlert, len(alerts))
	for _, alert := range alerts {
		byID[alert.EquipmentID] = alert
	}
	if len(alerts) != 3 {
		t.Fatalf("alert count = %d: %+v", len(alerts), alerts)
	}

	warn, ok := byID[frequent.ID]
	if !ok || warn.Severity != AlertWarning || len(warn.Reasons) != 1 {
		t.Fatalf("frequent alert = %+v", warn)
	}
	if warn.Breakdowns != 3 || warn.HealthScore != 55 {
		t.Fatalf("frequent alert fields = %+v", warn)
	}
	if warn.Reasons[0] != "3 corrective breakdowns in last 30 days" {
		t.Fatalf("frequent reason = %q", warn.Reasons[0])
	}

	crit, ok := byID[failing.ID]
	if !ok || crit.Severity != AlertCritical || len(crit.Reasons) != 2 {
		t.Fatalf("failing alert = %+v", crit)
	}

	health, ok := byID[weak.ID]
	if !ok || health.Severity != AlertCritical || len(health.Reasons) != 1 {
		t.Fatalf("weak alert = %+v", health)
	}
	if health.Reasons[0] != "Health score critical: 30/100" {
		t.Fatalf("weak reason = %q", health.Reasons[0])
	}
}

func TestGetDashboardSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	team, err := svc.CreateTeam(ctx, domain.MaintenanceTeamPatch{Name: domain.Ptr("Crew")})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	equipment := mustCreateEquipment(t, svc, domain.EquipmentPatch{
		Name:              domain.Ptr("Line"),
		MaintenanceTeamID: domain.Ptr(team.ID),
	})
	mustCreateRequest(t, svc, domain.MaintenanceRequestPatch{
		Subject:       domain.Ptr("Late"),
		EquipmentID:   domain.Ptr(equipment.ID),
		ScheduledDate: daysFromNow(-1),
	})

	dashboard, err := svc.GetDashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.KPIs.EquipmentCount != 1 || dashboard.KPIs.OpenRequestCount != 1 || dashboard.KPIs.OverdueCount != 1 {
		t.Fatalf("kpis = %+v", dashboard.KPIs)
	}
	if dashboard.TypeSplit.Corrective != 1 {
		t.Fatalf("split = %+v", dashboard.TypeSplit)
	}
	if len(dashboard.TeamLoads) != 1 || dashboard.TeamLoads[0].Requests != 1 {
		t.Fatalf("team loads = %+v", dashboard.TeamLoads)
	}
	if !dashboard.GeneratedAt.Equal(testNow) {
		t.Fatalf("generated at = %v", dashboard.GeneratedAt)
	}
}
