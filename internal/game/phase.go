// internal/game/phase.go
package game

// Phase represents the current phase of a session.
type Phase string

const (
	PhaseLobby          Phase = "lobby"
	PhaseRoleAssignment Phase = "role-assignment"
	PhaseTeamBuilding   Phase = "team-building"
	PhaseVoting         Phase = "voting"
	PhaseMission        Phase = "mission"
	PhaseMissionResult  Phase = "mission-result"
	PhaseGameEnd        Phase = "game-end"
)

func (p Phase) String() string { return string(p) }

// phaseTransitions is the full transition table. Anything absent here is an
// invalid transition.
var phaseTransitions = map[Phase][]Phase{
	PhaseLobby:          {PhaseRoleAssignment},
	PhaseRoleAssignment: {PhaseTeamBuilding},
	PhaseTeamBuilding:   {PhaseVoting},
	PhaseVoting:         {PhaseTeamBuilding, PhaseMission},
	PhaseMission:        {PhaseMissionResult},
	PhaseMissionResult:  {PhaseTeamBuilding, PhaseGameEnd},
	PhaseGameEnd:        {PhaseLobby},
}

// CanTransitionTo reports whether moving from p to target is allowed by the
// phase machine. Contextual guards (ready counts, scores) are checked by the
// callers that drive each transition.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range phaseTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}
