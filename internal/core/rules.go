package core

import "gearguard/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(RequestStateRule())
	engine.Register(TeamMembershipRule())
	return engine
}
