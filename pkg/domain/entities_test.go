package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPatchAppliesOnlySetFields(t *testing.T) {
	request := MaintenanceRequest{
		Subject:       "Original",
		State:         StateNew,
		RequestType:   RequestCorrective,
		DurationHours: 2.5,
	}
	scheduled := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	patch := MaintenanceRequestPatch{
		State:         Ptr(StateInProgress),
		ScheduledDate: Ptr(scheduled),
	}
	patch.Apply(&request)

	if request.State != StateInProgress {
		t.Fatalf("state = %s", request.State)
	}
	if request.ScheduledDate == nil || !request.ScheduledDate.Equal(scheduled) {
		t.Fatalf("scheduled = %v", request.ScheduledDate)
	}
	if request.Subject != "Original" || request.DurationHours != 2.5 {
		t.Fatalf("unset fields changed: %+v", request)
	}
}

func TestRequestOpenStates(t *testing.T) {
	cases := map[RequestState]bool{
		StateNew:        true,
		StateInProgress: true,
		StateRepaired:   false,
		StateScrap:      false,
	}
	for state, want := range cases {
		if got := (MaintenanceRequest{State: state}).Open(); got != want {
			t.Fatalf("Open() for %s = %v, want %v", state, got, want)
		}
	}
}

func TestTeamMembership(t *testing.T) {
	team := MaintenanceTeam{TechnicianIDs: []int{3, 7}}
	if !team.HasTechnician(7) {
		t.Fatal("member not found")
	}
	if team.HasTechnician(5) {
		t.Fatal("non-member reported as member")
	}
}

func TestRuleViolationErrorUsesFirstBlockingMessage(t *testing.T) {
	var res Result
	res.Merge(Result{Violations: []Violation{{Rule: "soft", Severity: SeverityWarn, Message: "advice"}}})
	if res.HasBlocking() {
		t.Fatal("warning counted as blocking")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "hard", Severity: SeverityBlock, Message: "stop right there"}}})
	if !res.HasBlocking() {
		t.Fatal("blocking violation missed")
	}

	err := error(RuleViolationError{Result: res})
	if err.Error() != "transaction blocked by rules: stop right there" {
		t.Fatalf("message = %q", err.Error())
	}
	var ruleErr RuleViolationError
	if !errors.As(err, &ruleErr) || len(ruleErr.Result.Violations) != 2 {
		t.Fatalf("unwrapped = %+v", ruleErr)
	}
}

func TestValidationErrorDetection(t *testing.T) {
	err := error(ValidationError{Message: "Duration is mandatory before closing a maintenance request"})
	if !IsValidation(err) {
		t.Fatal("validation error not detected")
	}
	if IsValidation(errors.New("something else")) {
		t.Fatal("plain error detected as validation")
	}
}
