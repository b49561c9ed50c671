// internal/game/errors.go
package game

import "errors"

// Rule violations: the command was well-formed but breaks game rules. These
// are rejected locally, never broadcast, and leave state untouched.
var (
	ErrInvalidPlayerCount = errors.New("player count must be between 5 and 10")
	ErrNoConnectedPlayers = errors.New("no connected players")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrMissionOutOfRange  = errors.New("mission number must be between 1 and 5")
	ErrWrongTeamSize      = errors.New("team size does not match the mission requirement")
	ErrUnknownPlayer      = errors.New("player is not part of this session")
	ErrPlayerDisconnected = errors.New("player is not connected")
	ErrNotLeader          = errors.New("only the mission leader may propose a team")
	ErrNotOnTeam          = errors.New("player is not on the selected team")
	ErrLeaderVoteFixed    = errors.New("the leader's vote is cast automatically and cannot be changed")
	ErrSabotageForbidden  = errors.New("resistance players cannot sabotage a mission")
	ErrRoomFull           = errors.New("room already has the maximum number of players")
)

// ErrInvariant marks a defensive check failure: the update would corrupt a
// session invariant (e.g. inconsistent mission progression). The caller logs
// it and refuses the update instead of crashing.
var ErrInvariant = errors.New("session invariant violated")
