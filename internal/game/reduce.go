// internal/game/reduce.go
package game

import (
	"fmt"
	"strings"

	"github.com/marceloig/resistance-game/internal/events"
)

// Reasons carried by leadership-changed events.
const (
	ReasonVoteRejected     = "vote-rejected"
	ReasonMissionCompleted = "mission-completed"
)

// Apply folds one event into the session state. It is the single reducer
// every replica runs, for locally originated events and received ones alike,
// so convergent state only depends on the event stream.
//
// Folds are idempotent per type: re-adding a present player, re-setting an
// already-set leader or score, or replaying a vote all leave state unchanged,
// which is what makes at-least-once delivery safe. An error means the update
// was refused and state is untouched.
func Apply(s *SessionState, ev events.Event) error {
	switch data := ev.Data.(type) {
	case *events.PlayerJoined:
		return applyPlayerJoined(s, data)
	case *events.PlayerLeft:
		return applyPlayerLeft(s, data)
	case *events.PlayerReady:
		return applyPlayerReady(s, data)
	case *events.RolesAssigned:
		return applyRolesAssigned(s, data)
	case *events.TeamSelected:
		return applyTeamSelected(s, data)
	case *events.VoteCast:
		return applyVoteCast(s, ev.SenderID, data)
	case *events.VotingCompleted:
		// Informational only: each replica detects completion from its own
		// accumulated votes, so there is nothing to fold.
		return nil
	case *events.MissionChoiceMade:
		return applyMissionChoice(s, ev.SenderID, data)
	case *events.MissionCompleted:
		return applyMissionCompleted(s, data)
	case *events.LeadershipChanged:
		return applyLeadershipChanged(s, data)
	case *events.GameEnded:
		return applyGameEnded(s, data)
	case *events.GameReset:
		return applyGameReset(s)
	default:
		return fmt.Errorf("%w: unhandled event type %s", ErrInvariant, ev.Type)
	}
}

func applyPlayerJoined(s *SessionState, data *events.PlayerJoined) error {
	if p := s.GetPlayer(data.PlayerID); p != nil {
		// Reconnect or duplicate delivery; either way the roster is already
		// correct.
		p.IsConnected = true
		return nil
	}
	if s.Phase != PhaseLobby {
		return fmt.Errorf("%w: player %s joined outside the lobby", ErrInvariant, data.PlayerName)
	}
	if len(s.Players) >= MaxPlayers {
		return ErrRoomFull
	}
	s.Players = append(s.Players, &Player{
		ID:          data.PlayerID,
		Name:        data.PlayerName,
		IsConnected: true,
	})
	s.Logf("%s joined the room", data.PlayerName)
	return nil
}

func applyPlayerLeft(s *SessionState, data *events.PlayerLeft) error {
	p := s.GetPlayer(data.PlayerID)
	if p == nil {
		return nil
	}
	if s.Phase == PhaseLobby {
		for i, existing := range s.Players {
			if existing.ID == data.PlayerID {
				s.Players = append(s.Players[:i], s.Players[i+1:]...)
				break
			}
		}
	} else {
		// Mid-game we keep the seat so role distribution and mission history
		// stay coherent; the player is just no longer connected.
		p.IsConnected = false
	}
	// Vote domain must stay within connected players.
	delete(s.CurrentVotes, data.PlayerID)
	s.Logf("%s left the room", p.Name)
	return nil
}

func applyPlayerReady(s *SessionState, data *events.PlayerReady) error {
	p := s.GetPlayer(data.PlayerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.IsReady = data.IsReady
	return nil
}

func applyRolesAssigned(s *SessionState, data *events.RolesAssigned) error {
	if s.Phase == PhaseTeamBuilding && s.CurrentLeaderID == data.FirstLeader {
		return nil // already applied
	}
	if !s.Phase.CanTransitionTo(PhaseRoleAssignment) {
		return fmt.Errorf("%w: roles assigned during %s", ErrInvalidTransition, s.Phase)
	}
	if s.GetPlayer(data.FirstLeader) == nil {
		return fmt.Errorf("%w: first leader %s unknown", ErrInvariant, data.FirstLeader)
	}
	for id := range data.Roles {
		if s.GetPlayer(id) == nil {
			return fmt.Errorf("%w: role assigned to unknown player %s", ErrInvariant, id)
		}
	}
	for id, role := range data.Roles {
		s.GetPlayer(id).Role = Role(role)
	}
	// Role assignment has no user interaction of its own, so the fold passes
	// straight through it into team-building.
	s.Phase = PhaseRoleAssignment
	s.Phase = PhaseTeamBuilding
	s.CurrentLeaderID = data.FirstLeader
	s.CurrentMissionNumber = 1
	s.CurrentVotes = make(map[string]bool)
	s.MissionChoices = make(map[string]bool)
	s.Logf("Roles assigned; %s leads mission 1", s.PlayerName(data.FirstLeader))
	return nil
}

func applyTeamSelected(s *SessionState, data *events.TeamSelected) error {
	if s.Phase == PhaseVoting && sameTeam(s.SelectedTeam, data.SelectedTeam) {
		return nil // already applied
	}
	if !s.Phase.CanTransitionTo(PhaseVoting) {
		return fmt.Errorf("%w: team selected during %s", ErrInvalidTransition, s.Phase)
	}
	s.SelectedTeam = append([]string(nil), data.SelectedTeam...)
	s.Phase = PhaseVoting
	s.CurrentVotes = make(map[string]bool)
	// The leader implicitly approves their own proposal; this is derived on
	// every replica rather than broadcast.
	s.CurrentVotes[s.CurrentLeaderID] = true
	names := make([]string, len(data.SelectedTeam))
	for i, id := range data.SelectedTeam {
		names[i] = s.PlayerName(id)
	}
	s.Logf("%s proposed a team for mission %d: %s",
		s.PlayerName(s.CurrentLeaderID), s.CurrentMissionNumber, strings.Join(names, ", "))
	return nil
}

func applyVoteCast(s *SessionState, senderID string, data *events.VoteCast) error {
	if s.Phase != PhaseVoting {
		return fmt.Errorf("%w: vote cast during %s", ErrInvalidTransition, s.Phase)
	}
	p := s.GetPlayer(senderID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.IsConnected {
		return ErrPlayerDisconnected
	}
	if senderID == s.CurrentLeaderID {
		// The leader's approval was auto-cast on phase entry and is not
		// overridable.
		return nil
	}
	s.CurrentVotes[senderID] = data.Vote
	return nil
}

func applyMissionChoice(s *SessionState, senderID string, data *events.MissionChoiceMade) error {
	if s.Phase != PhaseMission {
		return fmt.Errorf("%w: mission choice during %s", ErrInvalidTransition, s.Phase)
	}
	if !s.OnTeam(senderID) {
		return ErrNotOnTeam
	}
	s.MissionChoices[senderID] = data.Choice
	return nil
}

func applyMissionCompleted(s *SessionState, data *events.MissionCompleted) error {
	if s.ResistanceScore == data.NewScores.Resistance && s.SpyScore == data.NewScores.Spy {
		return nil // this replica already resolved the mission itself
	}
	if data.NewScores.Resistance < s.ResistanceScore || data.NewScores.Spy < s.SpyScore {
		return fmt.Errorf("%w: mission scores regressed (%d/%d -> %d/%d)", ErrInvariant,
			s.ResistanceScore, s.SpyScore, data.NewScores.Resistance, data.NewScores.Spy)
	}
	if s.Phase != PhaseMission {
		return fmt.Errorf("%w: mission completed during %s", ErrInvalidTransition, s.Phase)
	}
	// Catch-up path for a replica that missed individual choice events.
	s.ResistanceScore = data.NewScores.Resistance
	s.SpyScore = data.NewScores.Spy
	s.Phase = PhaseMissionResult
	return nil
}

func applyLeadershipChanged(s *SessionState, data *events.LeadershipChanged) error {
	if s.GetPlayer(data.NewLeader) == nil {
		return fmt.Errorf("%w: new leader %s unknown", ErrInvariant, data.NewLeader)
	}
	alreadyApplied := s.CurrentLeaderID == data.NewLeader &&
		len(s.SelectedTeam) == 0 && s.Phase == PhaseTeamBuilding
	if alreadyApplied {
		return nil
	}
	if s.Phase != PhaseTeamBuilding && !s.Phase.CanTransitionTo(PhaseTeamBuilding) {
		return fmt.Errorf("%w: leadership changed during %s", ErrInvalidTransition, s.Phase)
	}
	s.CurrentLeaderID = data.NewLeader
	s.SelectedTeam = nil
	s.CurrentVotes = make(map[string]bool)
	if data.Reason == ReasonMissionCompleted {
		s.MissionChoices = make(map[string]bool)
		// A replica that resolved the mission itself already advanced the
		// mission number; one that caught up via mission-completed derives it
		// from the completed-mission count.
		if next := s.ResistanceScore + s.SpyScore + 1; next > s.CurrentMissionNumber && next <= MaxMissions {
			s.CurrentMissionNumber = next
		}
	}
	if s.Phase != PhaseTeamBuilding {
		s.Phase = PhaseTeamBuilding
	}
	return nil
}

func applyGameEnded(s *SessionState, data *events.GameEnded) error {
	if s.Phase == PhaseGameEnd {
		return nil
	}
	end := CheckGameEnd(data.FinalScores.Resistance, data.FinalScores.Spy)
	if !end.Ended {
		return fmt.Errorf("%w: game-ended with non-terminal scores %d/%d", ErrInvariant,
			data.FinalScores.Resistance, data.FinalScores.Spy)
	}
	if !s.Phase.CanTransitionTo(PhaseGameEnd) {
		return fmt.Errorf("%w: game ended during %s", ErrInvalidTransition, s.Phase)
	}
	s.ResistanceScore = data.FinalScores.Resistance
	s.SpyScore = data.FinalScores.Spy
	s.Phase = PhaseGameEnd
	s.Logf("Game over: %s win %d-%d", end.Winner, maxInt(s.ResistanceScore, s.SpyScore), minInt(s.ResistanceScore, s.SpyScore))
	return nil
}

func applyGameReset(s *SessionState) error {
	if s.Phase == PhaseLobby {
		return nil
	}
	if !s.Phase.CanTransitionTo(PhaseLobby) {
		return fmt.Errorf("%w: game reset during %s", ErrInvalidTransition, s.Phase)
	}
	// Back to the lobby for a replay: same room, same players, clean slate.
	remaining := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.IsConnected {
			continue
		}
		p.Role = RoleUnassigned
		p.IsReady = false
		remaining = append(remaining, p)
	}
	s.Players = remaining
	s.Phase = PhaseLobby
	s.CurrentLeaderID = ""
	s.CurrentMissionNumber = 0
	s.MissionHistory = nil
	s.ResistanceScore = 0
	s.SpyScore = 0
	s.SelectedTeam = nil
	s.CurrentVotes = make(map[string]bool)
	s.MissionChoices = make(map[string]bool)
	s.Logf("Room reset for a new game")
	return nil
}

func sameTeam(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	members := make(map[string]bool, len(a))
	for _, id := range a {
		members[id] = true
	}
	for _, id := range b {
		if !members[id] {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
