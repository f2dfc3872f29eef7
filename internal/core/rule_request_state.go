package core

import (
	"context"
	"fmt"

	"gearguard/pkg/domain"
)

// RequestStateRule blocks illegal workflow states on maintenance requests:
// unknown state values and escapes from the terminal repaired/scrap states.
func RequestStateRule() domain.Rule {
	return requestStateRule{}
}

type requestStateRule struct{}

var validRequestStates = toSet(
	string(domain.StateNew),
	string(domain.StateInProgress),
	string(domain.StateRepaired),
	string(domain.StateScrap),
)

var terminalRequestStates = toSet(
	string(domain.StateRepaired),
	string(domain.StateScrap),
)

func (requestStateRule) Name() string { return "request_state" }

func (requestStateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityRequest {
			continue
		}

		after, ok := change.After.(domain.MaintenanceRequest)
		if !ok {
			continue
		}
		if _, valid := validRequestStates[string(after.State)]; !valid {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "request_state",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("maintenance request %d is set to invalid state %s", after.ID, after.State),
				Entity:   domain.EntityRequest,
				EntityID: after.ID,
			})
			continue
		}

		before, ok := change.Before.(domain.MaintenanceRequest)
		if !ok {
			continue
		}
		if _, terminal := terminalRequestStates[string(before.State)]; !terminal {
			continue
		}
		if after.State != before.State {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "request_state",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cannot move maintenance request %d from terminal state %s to %s", before.ID, before.State, after.State),
				Entity:   domain.EntityRequest,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
