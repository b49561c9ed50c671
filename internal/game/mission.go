// internal/game/mission.go
package game

// MaxMissions is the number of missions in a session.
const MaxMissions = 5

// WinningScore is the score at which a team wins the game.
const WinningScore = 3

// teamSizes is the canonical Resistance team-size table: required team size
// per player count (5-10) and mission number (1-5).
var teamSizes = map[int][MaxMissions]int{
	5:  {2, 3, 2, 3, 3},
	6:  {2, 3, 4, 3, 4},
	7:  {2, 3, 3, 4, 4},
	8:  {3, 4, 4, 5, 5},
	9:  {3, 4, 4, 5, 5},
	10: {3, 4, 4, 5, 5},
}

// TeamSize looks up the required mission team size for a given player count
// and mission number.
func TeamSize(playerCount, missionNumber int) (int, error) {
	sizes, ok := teamSizes[playerCount]
	if !ok {
		return 0, ErrInvalidPlayerCount
	}
	if missionNumber < 1 || missionNumber > MaxMissions {
		return 0, ErrMissionOutOfRange
	}
	return sizes[missionNumber-1], nil
}

// MissionTally is the aggregate outcome of one mission's choices.
type MissionTally struct {
	Success   bool
	FailCount int
}

// TallyMission resolves a mission from its team's choices. A single
// sabotage fails the mission regardless of team size.
func TallyMission(choices map[string]bool) MissionTally {
	tally := MissionTally{Success: true}
	for _, choice := range choices {
		if !choice {
			tally.FailCount++
			tally.Success = false
		}
	}
	return tally
}

// GameEndResult reports whether a score pair terminates the game.
type GameEndResult struct {
	Ended  bool
	Winner Role
}

// CheckGameEnd reports termination: the game ends the instant either team
// reaches the winning score.
func CheckGameEnd(resistanceScore, spyScore int) GameEndResult {
	if resistanceScore >= WinningScore {
		return GameEndResult{Ended: true, Winner: RoleResistance}
	}
	if spyScore >= WinningScore {
		return GameEndResult{Ended: true, Winner: RoleSpy}
	}
	return GameEndResult{}
}
