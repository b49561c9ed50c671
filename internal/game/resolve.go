// internal/game/resolve.go
package game

import (
	"fmt"
	"sort"
	"strings"
)

// Round resolution runs on every replica independently. There is no central
// counter: each replica watches its own accumulated votes and choices and
// resolves the round the moment they are complete. Because the tally and the
// follow-up transitions are deterministic functions of the same event set,
// all replicas land on the same state regardless of arrival interleaving.

// VotingResolution reports a resolved team-approval round.
type VotingResolution struct {
	Tally         VoteTally
	Votes         map[string]bool
	MissionNumber int
	NewLeader     string // set when the proposal was rejected
}

// MissionResolution reports a resolved mission.
type MissionResolution struct {
	MissionNumber   int
	Tally           MissionTally
	ResistanceScore int
	SpyScore        int
	Ended           bool
	Winner          Role
	NewLeader       string // set when the game continues
}

// VotingComplete reports whether every connected player has a recorded vote.
func (s *SessionState) VotingComplete() bool {
	if s.Phase != PhaseVoting {
		return false
	}
	connected := s.ConnectedPlayers()
	if len(connected) == 0 {
		return false
	}
	for _, p := range connected {
		if _, ok := s.CurrentVotes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// MissionComplete reports whether every team member has submitted a choice.
func (s *SessionState) MissionComplete() bool {
	if s.Phase != PhaseMission || len(s.SelectedTeam) == 0 {
		return false
	}
	for _, id := range s.SelectedTeam {
		if _, ok := s.MissionChoices[id]; !ok {
			return false
		}
	}
	return true
}

// ResolveVoting tallies a complete voting round and applies its effects:
// approval moves the session to the mission phase; rejection clears the
// proposal, advances leadership and returns to team-building. Returns nil
// when the round is not yet complete.
func (s *SessionState) ResolveVoting() (*VotingResolution, error) {
	if !s.VotingComplete() {
		return nil, nil
	}

	tally := TallyVotes(s.CurrentVotes)
	res := &VotingResolution{
		Tally:         tally,
		Votes:         copyBoolMap(s.CurrentVotes),
		MissionNumber: s.CurrentMissionNumber,
	}

	yes, no := s.voterNames()
	if tally.Approved {
		s.Logf("Team approved %d-%d (yes: %s; no: %s)", tally.Yes, tally.No, yes, no)
		s.Phase = PhaseMission
		s.MissionChoices = make(map[string]bool)
		return res, nil
	}

	s.Logf("Team rejected %d-%d (yes: %s; no: %s)", tally.Yes, tally.No, yes, no)
	next, err := NextLeader(s.Players, s.CurrentLeaderID)
	if err != nil {
		return nil, err
	}
	s.SelectedTeam = nil
	s.CurrentVotes = make(map[string]bool)
	s.CurrentLeaderID = next
	s.Phase = PhaseTeamBuilding
	s.Logf("%s now leads mission %d", s.PlayerName(next), s.CurrentMissionNumber)
	res.NewLeader = next
	return res, nil
}

// ResolveMission tallies a complete mission, records the immutable result,
// and either terminates the game or rotates leadership into the next
// mission's team-building. Returns nil when the round is not yet complete.
//
// The log line lists the mission and its participants but never the
// individual choices; who sabotaged stays anonymous.
func (s *SessionState) ResolveMission() (*MissionResolution, error) {
	if !s.MissionComplete() {
		return nil, nil
	}
	if s.CurrentMissionNumber < 1 || s.CurrentMissionNumber > MaxMissions {
		return nil, fmt.Errorf("%w: mission number %d out of range", ErrInvariant, s.CurrentMissionNumber)
	}
	if len(s.MissionHistory) != s.ResistanceScore+s.SpyScore {
		return nil, fmt.Errorf("%w: mission history out of step with scores", ErrInvariant)
	}

	tally := TallyMission(s.MissionChoices)
	outcome := MissionFailure
	if tally.Success {
		outcome = MissionSuccess
		s.ResistanceScore++
	} else {
		s.SpyScore++
	}

	required, err := TeamSize(len(s.Players), s.CurrentMissionNumber)
	if err != nil {
		return nil, err
	}
	s.MissionHistory = append(s.MissionHistory, MissionResult{
		MissionNumber:    s.CurrentMissionNumber,
		RequiredPlayers:  required,
		SelectedPlayers:  append([]string(nil), s.SelectedTeam...),
		Votes:            copyBoolMap(s.CurrentVotes),
		MissionChoices:   copyBoolMap(s.MissionChoices),
		Outcome:          outcome,
		ResistancePoints: s.ResistanceScore,
		SpyPoints:        s.SpyScore,
	})

	names := make([]string, len(s.SelectedTeam))
	for i, id := range s.SelectedTeam {
		names[i] = s.PlayerName(id)
	}
	sort.Strings(names)
	s.Logf("Mission %d (%s): %s", s.CurrentMissionNumber, strings.Join(names, ", "), outcome)

	res := &MissionResolution{
		MissionNumber:   s.CurrentMissionNumber,
		Tally:           tally,
		ResistanceScore: s.ResistanceScore,
		SpyScore:        s.SpyScore,
	}

	s.Phase = PhaseMissionResult

	if end := CheckGameEnd(s.ResistanceScore, s.SpyScore); end.Ended {
		s.Phase = PhaseGameEnd
		s.Logf("Game over: %s win %d-%d", end.Winner,
			maxInt(s.ResistanceScore, s.SpyScore), minInt(s.ResistanceScore, s.SpyScore))
		res.Ended = true
		res.Winner = end.Winner
		return res, nil
	}

	next, err := NextLeader(s.Players, s.CurrentLeaderID)
	if err != nil {
		return nil, err
	}
	s.CurrentLeaderID = next
	s.SelectedTeam = nil
	s.CurrentVotes = make(map[string]bool)
	s.MissionChoices = make(map[string]bool)
	s.CurrentMissionNumber++
	s.Phase = PhaseTeamBuilding
	s.Logf("%s now leads mission %d", s.PlayerName(next), s.CurrentMissionNumber)
	res.NewLeader = next
	return res, nil
}

// voterNames renders the yes and no voter lists for the public log. Votes
// are public by design at this stage.
func (s *SessionState) voterNames() (yes, no string) {
	var yesNames, noNames []string
	for id, vote := range s.CurrentVotes {
		if vote {
			yesNames = append(yesNames, s.PlayerName(id))
		} else {
			noNames = append(noNames, s.PlayerName(id))
		}
	}
	sort.Strings(yesNames)
	sort.Strings(noNames)
	return strings.Join(yesNames, ", "), strings.Join(noNames, ", ")
}
