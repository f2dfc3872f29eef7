package domain

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRequestFields() map[string]any {
	return MaintenanceRequest{
		Base:          Base{ID: 7, CreatedAt: day("2026-08-01")},
		Subject:       "Belt replacement",
		EquipmentID:   Ptr(3),
		RequestType:   RequestCorrective,
		ScheduledDate: Ptr(day("2026-08-10")),
		TechnicianID:  Ptr(2),
		DurationHours: 4,
		State:         StateInProgress,
	}.Fields()
}

func TestDomainEquality(t *testing.T) {
	fields := sampleRequestFields()

	cases := []struct {
		name string
		dom  Domain
		want bool
	}{
		{"equal int", Domain{{Field: "equipment_id", Operator: OpEq, Value: 3}}, true},
		{"equal int mismatch", Domain{{Field: "equipment_id", Operator: OpEq, Value: 4}}, false},
		{"not equal", Domain{{Field: "equipment_id", Operator: OpNeq, Value: 4}}, true},
		{"typed string vs plain", Domain{{Field: "state", Operator: OpEq, Value: "in_progress"}}, true},
		{"typed string value", Domain{{Field: "state", Operator: OpEq, Value: StateInProgress}}, true},
		{"float vs int", Domain{{Field: "duration", Operator: OpEq, Value: 4}}, true},
		{"nil field", Domain{{Field: "repaired_date", Operator: OpEq, Value: nil}}, true},
		{"nil vs set", Domain{{Field: "equipment_id", Operator: OpEq, Value: nil}}, false},
		{"time equality", Domain{{Field: "scheduled_date", Operator: OpEq, Value: day("2026-08-10")}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.dom.Matches(fields); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDomainOrdering(t *testing.T) {
	fields := sampleRequestFields()

	cases := []struct {
		name string
		dom  Domain
		want bool
	}{
		{"lt time", Domain{{Field: "scheduled_date", Operator: OpLt, Value: day("2026-08-11")}}, true},
		{"lt time equal", Domain{{Field: "scheduled_date", Operator: OpLt, Value: day("2026-08-10")}}, false},
		{"gte time equal", Domain{{Field: "scheduled_date", Operator: OpGte, Value: day("2026-08-10")}}, true},
		{"gt number", Domain{{Field: "duration", Operator: OpGt, Value: 3.5}}, true},
		{"lte number", Domain{{Field: "duration", Operator: OpLte, Value: 4}}, true},
		{"ordering against nil fails", Domain{{Field: "repaired_date", Operator: OpLt, Value: day("2026-08-10")}}, false},
		{"ordering non-orderable fails", Domain{{Field: "subject", Operator: OpLt, Value: 5}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.dom.Matches(fields); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDomainMembership(t *testing.T) {
	fields := sampleRequestFields()

	openStates := []RequestState{StateNew, StateInProgress}
	closed := []RequestState{StateRepaired, StateScrap}

	if !(Domain{{Field: "state", Operator: OpIn, Value: openStates}}).Matches(fields) {
		t.Fatal("expected in_progress to match open states")
	}
	if (Domain{{Field: "state", Operator: OpIn, Value: closed}}).Matches(fields) {
		t.Fatal("expected in_progress not to match closed states")
	}
	if !(Domain{{Field: "state", Operator: OpNotIn, Value: closed}}).Matches(fields) {
		t.Fatal("expected not-in closed to match")
	}
	// Scalar membership degrades to equality.
	if !(Domain{{Field: "equipment_id", Operator: OpIn, Value: 3}}).Matches(fields) {
		t.Fatal("expected scalar in to behave as equality")
	}
	if !(Domain{{Field: "equipment_id", Operator: OpIn, Value: []int{1, 3, 9}}}).Matches(fields) {
		t.Fatal("expected membership in int slice")
	}
}

func TestDomainMalformedConditionsAreSkipped(t *testing.T) {
	fields := sampleRequestFields()

	// Empty field and unknown operators are always-true, never a crash.
	malformed := Domain{
		{Field: "", Operator: OpEq, Value: 1},
		{Field: "state", Operator: Operator("like"), Value: "x"},
	}
	if !malformed.Matches(fields) {
		t.Fatal("malformed conditions should be skipped")
	}

	// Unknown field name evaluates against nil and fails equality.
	if (Domain{{Field: "no_such_field", Operator: OpEq, Value: 1}}).Matches(fields) {
		t.Fatal("unknown field should not match a concrete value")
	}
}

func TestDomainConjunction(t *testing.T) {
	fields := sampleRequestFields()

	dom := Domain{
		{Field: "equipment_id", Operator: OpEq, Value: 3},
		{Field: "request_type", Operator: OpEq, Value: RequestCorrective},
		{Field: "state", Operator: OpIn, Value: OpenStates()},
	}
	if !dom.Matches(fields) {
		t.Fatal("expected all conditions to hold")
	}
	dom = append(dom, Condition{Field: "technician_id", Operator: OpEq, Value: 99})
	if dom.Matches(fields) {
		t.Fatal("one failing condition must fail the domain")
	}
	if !(Domain{}).Matches(fields) {
		t.Fatal("empty domain matches everything")
	}
}
