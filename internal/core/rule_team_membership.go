package core

import (
	"context"

	"gearguard/pkg/domain"
)

// TeamMembershipRule blocks requests assigned to a technician who is not a
// member of the assigned maintenance team. Only writes that change the
// technician or team assignment are checked, so a request whose membership
// went stale after the fact can still move through its workflow. A
// transaction that violates the rule is aborted wholesale, so partial writes
// never become visible.
func TeamMembershipRule() domain.Rule {
	return teamMembershipRule{}
}

type teamMembershipRule struct{}

func (teamMembershipRule) Name() string { return "team_membership" }

func (teamMembershipRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityRequest {
			continue
		}
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		request, ok := change.After.(domain.MaintenanceRequest)
		if !ok {
			continue
		}
		if before, ok := change.Before.(domain.MaintenanceRequest); ok &&
			intPtrEqual(before.TechnicianID, request.TechnicianID) &&
			intPtrEqual(before.MaintenanceTeamID, request.MaintenanceTeamID) {
			// Assignment untouched by this write.
			continue
		}
		if request.TechnicianID == nil || request.MaintenanceTeamID == nil {
			continue
		}
		team, found := view.FindTeam(*request.MaintenanceTeamID)
		if !found {
			// Dangling team references are not this rule's concern.
			continue
		}
		if team.HasTechnician(*request.TechnicianID) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "team_membership",
			Severity: domain.SeverityBlock,
			Message:  "Technician must be a member of the assigned maintenance team",
			Entity:   domain.EntityRequest,
			EntityID: request.ID,
		})
	}
	return res, nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
