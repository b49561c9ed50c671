// internal/validate/validate.go

// Package validate is the single pre-reducer gate for player input. Every
// command path runs through here before it may touch session state, so no
// malformed name, room code or team proposal can reach the rules engine.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/marceloig/resistance-game/internal/game"
)

// MaxNameLength is the display-name ceiling in characters.
const MaxNameLength = 20

// Error is a rejected-input error: the input's shape was wrong before any
// game rule was consulted.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// RoomCode checks the 6-character [A-Z0-9] room code format.
func RoomCode(code string) error {
	if !roomCodePattern.MatchString(code) {
		return &Error{Field: "room code", Reason: "must be 6 characters A-Z or 0-9"}
	}
	return nil
}

// PlayerName checks a display name: non-blank, at most MaxNameLength
// characters, unique within the session.
func PlayerName(name string, s *game.SessionState) error {
	if strings.TrimSpace(name) == "" {
		return &Error{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &Error{Field: "name", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	}
	if s != nil {
		for _, p := range s.Players {
			if p.Name == name {
				return &Error{Field: "name", Reason: "already taken in this room"}
			}
		}
	}
	return nil
}

// CanStartGame checks the lobby -> role-assignment guard: enough ready
// players, not too many in total.
func CanStartGame(s *game.SessionState) error {
	if s.Phase != game.PhaseLobby {
		return game.ErrInvalidTransition
	}
	connected := len(s.ConnectedPlayers())
	if connected > game.MaxPlayers {
		return game.ErrInvalidPlayerCount
	}
	if s.ReadyCount() < game.MinPlayers {
		return game.ErrInvalidPlayerCount
	}
	return nil
}

// Team checks a proposed mission team: proposer must be the leader, the
// session must be in team-building, and the team must be exactly the
// required size with known, connected, distinct members.
func Team(s *game.SessionState, proposerID string, team []string) error {
	if s.Phase != game.PhaseTeamBuilding {
		return game.ErrInvalidTransition
	}
	if proposerID != s.CurrentLeaderID {
		return game.ErrNotLeader
	}
	required, err := game.TeamSize(len(s.Players), s.CurrentMissionNumber)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(team))
	for _, id := range team {
		if seen[id] {
			return &Error{Field: "team", Reason: "duplicate player id"}
		}
		seen[id] = true
		p := s.GetPlayer(id)
		if p == nil {
			return game.ErrUnknownPlayer
		}
		if !p.IsConnected {
			return game.ErrPlayerDisconnected
		}
	}
	if len(seen) != required {
		return game.ErrWrongTeamSize
	}
	return nil
}

// Vote checks a team vote: voting phase, known connected voter, and not the
// leader, whose approval was cast automatically and cannot be changed.
func Vote(s *game.SessionState, voterID string) error {
	if s.Phase != game.PhaseVoting {
		return game.ErrInvalidTransition
	}
	p := s.GetPlayer(voterID)
	if p == nil {
		return game.ErrUnknownPlayer
	}
	if !p.IsConnected {
		return game.ErrPlayerDisconnected
	}
	if voterID == s.CurrentLeaderID {
		return game.ErrLeaderVoteFixed
	}
	return nil
}

// MissionChoice checks a mission choice: mission phase, chooser on the
// team, and only spies may sabotage. The capability restriction is enforced
// here, at the gate, so no code path can publish a resistance sabotage.
func MissionChoice(s *game.SessionState, playerID string, choice bool) error {
	if s.Phase != game.PhaseMission {
		return game.ErrInvalidTransition
	}
	p := s.GetPlayer(playerID)
	if p == nil {
		return game.ErrUnknownPlayer
	}
	if !s.OnTeam(playerID) {
		return game.ErrNotOnTeam
	}
	if !choice && p.Role != game.RoleSpy {
		return game.ErrSabotageForbidden
	}
	return nil
}
