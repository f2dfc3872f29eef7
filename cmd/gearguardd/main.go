// Command gearguardd seeds a demo maintenance dataset, walks a request
// through its workflow, and prints the dashboard analytics. Storage and
// attachment backends are selected via GEARGUARD_* environment variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gearguard/internal/blob"
	"gearguard/internal/core"
	"gearguard/pkg/domain"
)

type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), logger); err != nil {
		logger.Error("gearguardd failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	opts := []core.ServiceOption{core.WithLogger(slogAdapter{l: logger})}
	if os.Getenv("GEARGUARD_BLOB_DRIVER") != "" {
		blobs, err := blob.Open(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		opts = append(opts, core.WithBlobStore(blobs))
	}
	svc := core.NewService(store, opts...)

	seed, err := seedDemoData(ctx, svc)
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	logger.Info("demo data created",
		"employees", len(seed.employees),
		"teams", len(seed.teams),
		"equipment", len(seed.equipment),
		"requests", len(seed.requests),
	)

	if err := demoWorkflow(ctx, svc, seed); err != nil {
		return fmt.Errorf("demo workflow: %w", err)
	}
	return printDashboard(ctx, svc)
}

type demoData struct {
	employees []domain.Employee
	teams     []domain.MaintenanceTeam
	equipment []domain.Equipment
	requests  []domain.MaintenanceRequest
}

func date(t time.Time, days int) *time.Time {
	d := t.AddDate(0, 0, days)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func parseDate(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

func seedDemoData(ctx context.Context, svc *core.Service) (demoData, error) {
	var out demoData
	today := svc.Today()

	john, err := svc.CreateEmployee(ctx, domain.EmployeePatch{
		Name:         domain.Ptr("John Technician"),
		Email:        domain.Ptr("john@company.com"),
		Department:   domain.Ptr("Maintenance"),
		IsTechnician: domain.Ptr(true),
	})
	if err != nil {
		return out, err
	}
	sarah, err := svc.CreateEmployee(ctx, domain.EmployeePatch{
		Name:         domain.Ptr("Sarah Engineer"),
		Email:        domain.Ptr("sarah@company.com"),
		Department:   domain.Ptr("Maintenance"),
		IsTechnician: domain.Ptr(true),
	})
	if err != nil {
		return out, err
	}
	mike, err := svc.CreateEmployee(ctx, domain.EmployeePatch{
		Name:       domain.Ptr("Mike Operator"),
		Email:      domain.Ptr("mike@company.com"),
		Department: domain.Ptr("Production"),
	})
	if err != nil {
		return out, err
	}
	out.employees = []domain.Employee{john, sarah, mike}

	electrical, err := svc.CreateTeam(ctx, domain.MaintenanceTeamPatch{
		Name:          domain.Ptr("Electrical Team"),
		Description:   domain.Ptr("Handles electrical equipment maintenance"),
		TechnicianIDs: domain.Ptr([]int{john.ID, sarah.ID}),
	})
	if err != nil {
		return out, err
	}
	mechanical, err := svc.CreateTeam(ctx, domain.MaintenanceTeamPatch{
		Name:          domain.Ptr("Mechanical Team"),
		Description:   domain.Ptr("Handles mechanical equipment maintenance"),
		TechnicianIDs: domain.Ptr([]int{sarah.ID}),
	})
	if err != nil {
		return out, err
	}
	out.teams = []domain.MaintenanceTeam{electrical, mechanical}

	type equipSeed struct {
		name, serial, department, location string
		teamID                             int
		assignedID                         *int
		purchase, warranty                 string
	}
	for _, seed := range []equipSeed{
		{"Production Line Conveyor Belt", "CONV-001", "Production", "Factory Floor A", electrical.ID, domain.Ptr(mike.ID), "2020-01-15", "2023-01-15"},
		{"HVAC System Unit 1", "HVAC-001", "Facilities", "Building 1", mechanical.ID, nil, "2019-06-20", "2022-06-20"},
		{"CNC Machine Center", "CNC-001", "Manufacturing", "Factory Floor B", electrical.ID, nil, "2021-03-10", "2024-03-10"},
		{"Compressor Unit 2", "COMP-002", "Production", "Factory Floor A", mechanical.ID, nil, "2020-08-15", "2023-08-15"},
		{"Water Pump System", "PUMP-001", "Utilities", "Building 2", mechanical.ID, nil, "2022-01-10", "2025-01-10"},
		{"Server Rack Unit 1", "SRV-001", "IT", "Server Room", electrical.ID, nil, "2021-05-15", "2024-05-15"},
	} {
		patch := domain.EquipmentPatch{
			Name:              domain.Ptr(seed.name),
			SerialNumber:      domain.Ptr(seed.serial),
			Department:        domain.Ptr(seed.department),
			Location:          domain.Ptr(seed.location),
			MaintenanceTeamID: domain.Ptr(seed.teamID),
			PurchaseDate:      parseDate(seed.purchase),
			WarrantyEndDate:   parseDate(seed.warranty),
		}
		if seed.assignedID != nil {
			patch.AssignedEmployeeID = seed.assignedID
		}
		equipment, err := svc.CreateEquipment(ctx, patch)
		if err != nil {
			return out, err
		}
		out.equipment = append(out.equipment, equipment)
	}

	type requestSeed struct {
		subject, description string
		equipmentIdx         int
		requestType          domain.RequestType
		scheduledOffset      int
		technicianID         *int
		state                domain.RequestState
		repairedOffset       *int
		duration             float64
	}
	for _, seed := range []requestSeed{
		{"Routine inspection - Conveyor Belt", "Monthly preventive maintenance check", 0, domain.RequestPreventive, 5, domain.Ptr(john.ID), domain.StateNew, nil, 0},
		{"Belt replacement needed", "Belt showing signs of wear", 0, domain.RequestCorrective, 3, domain.Ptr(john.ID), domain.StateInProgress, nil, 0},
		{"HVAC Filter Replacement", "Quarterly filter replacement", 1, domain.RequestPreventive, 7, domain.Ptr(sarah.ID), domain.StateNew, nil, 0},
		{"CNC Calibration Check", "Monthly calibration verification", 2, domain.RequestPreventive, 10, domain.Ptr(john.ID), domain.StateInProgress, nil, 0},
		{"Compressor Oil Change", "Regular oil change maintenance", 3, domain.RequestPreventive, -5, domain.Ptr(sarah.ID), domain.StateRepaired, domain.Ptr(-5), 2.5},
		{"Conveyor Belt Repair", "Fixed belt alignment issue", 0, domain.RequestCorrective, -3, domain.Ptr(john.ID), domain.StateRepaired, domain.Ptr(-2), 4.0},
		{"HVAC System Cleaning", "Deep cleaning of HVAC unit", 1, domain.RequestPreventive, -8, domain.Ptr(sarah.ID), domain.StateRepaired, domain.Ptr(-7), 3.5},
		{"CNC Spindle Maintenance", "Spindle lubrication and inspection", 2, domain.RequestPreventive, -12, domain.Ptr(john.ID), domain.StateRepaired, domain.Ptr(-11), 1.5},
		{"Pump inspection overdue", "Monthly pump inspection", 4, domain.RequestPreventive, -2, domain.Ptr(sarah.ID), domain.StateNew, nil, 0},
		{"Server cooling fan replacement", "Fan making noise, needs replacement", 5, domain.RequestCorrective, 2, domain.Ptr(john.ID), domain.StateInProgress, nil, 0},
		{"Routine server maintenance", "Quarterly server maintenance check", 5, domain.RequestPreventive, 15, nil, domain.StateNew, nil, 0},
	} {
		patch := domain.MaintenanceRequestPatch{
			Subject:       domain.Ptr(seed.subject),
			Description:   domain.Ptr(seed.description),
			EquipmentID:   domain.Ptr(out.equipment[seed.equipmentIdx].ID),
			RequestType:   domain.Ptr(seed.requestType),
			ScheduledDate: date(today, seed.scheduledOffset),
			State:         domain.Ptr(seed.state),
		}
		if seed.technicianID != nil {
			patch.TechnicianID = seed.technicianID
		}
		if seed.repairedOffset != nil {
			patch.RepairedDate = date(today, *seed.repairedOffset)
		}
		if seed.duration > 0 {
			patch.DurationHours = domain.Ptr(seed.duration)
		}
		request, err := svc.CreateRequest(ctx, patch)
		if err != nil {
			return out, err
		}
		out.requests = append(out.requests, request)
	}
	return out, nil
}

// demoWorkflow walks one corrective request through the full lifecycle.
func demoWorkflow(ctx context.Context, svc *core.Service, seed demoData) error {
	equipment := seed.equipment[0]
	fmt.Printf("Equipment: %s (health %d/100)\n", equipment.Name, equipment.HealthScore)

	request, err := svc.CreateRequest(ctx, domain.MaintenanceRequestPatch{
		Subject:       domain.Ptr("Emergency repair needed"),
		Description:   domain.Ptr("Equipment malfunction detected"),
		EquipmentID:   domain.Ptr(equipment.ID),
		RequestType:   domain.Ptr(domain.RequestCorrective),
		ScheduledDate: date(svc.Today(), -5),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Request %d created: state=%s overdue=%v\n", request.ID, request.State, request.IsOverdue)

	ok, err := svc.StartRequest(ctx, request.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("start request %d not applied", request.ID)
	}
	ok, err = svc.RepairRequest(ctx, request.ID, 3.5)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("repair request %d not applied", request.ID)
	}
	repaired, _ := svc.Store().FindRequest(request.ID)
	fmt.Printf("Request %d completed: state=%s duration=%.1fh\n", repaired.ID, repaired.State, repaired.DurationHours)

	score, _, err := svc.ComputeHealthScore(ctx, equipment.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Equipment health after repair: %d/100\n", score)
	return nil
}

func printDashboard(ctx context.Context, svc *core.Service) error {
	dashboard, err := svc.GetDashboard(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== DASHBOARD ===")
	fmt.Printf("Total Equipment: %d\n", dashboard.KPIs.EquipmentCount)
	fmt.Printf("Open Requests: %d\n", dashboard.KPIs.OpenRequestCount)
	fmt.Printf("Overdue Requests: %d\n", dashboard.KPIs.OverdueCount)
	fmt.Printf("Critical Health Equipment: %d\n", dashboard.KPIs.CriticalEquipment)

	total := dashboard.TypeSplit.Preventive + dashboard.TypeSplit.Corrective
	if total > 0 {
		fmt.Printf("Preventive: %d / Corrective: %d\n", dashboard.TypeSplit.Preventive, dashboard.TypeSplit.Corrective)
	}

	fmt.Println("\nRequests per team:")
	for _, load := range dashboard.TeamLoads {
		fmt.Printf("  %s: %d\n", load.TeamName, load.Requests)
	}

	fmt.Println("\nTechnician workloads:")
	for _, load := range dashboard.Technicians {
		fmt.Printf("  %s: %d open tasks\n", load.Name, load.Open)
	}

	fmt.Println("\nPredictive alerts:")
	if len(dashboard.Alerts) == 0 {
		fmt.Println("  none - all equipment operating normally")
		return nil
	}
	for _, alert := range dashboard.Alerts {
		fmt.Printf("  [%s] %s (health %d/100, %d breakdowns)\n", alert.Severity, alert.EquipmentName, alert.HealthScore, alert.Breakdowns)
		for _, reason := range alert.Reasons {
			fmt.Printf("    - %s\n", reason)
		}
	}
	return nil
}
