// internal/events/events.go
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies an event on the room channel.
type Type string

const (
	TypePlayerJoined      Type = "player-joined"
	TypePlayerLeft        Type = "player-left"
	TypePlayerReady       Type = "player-ready"
	TypeRolesAssigned     Type = "roles-assigned"
	TypeTeamSelected      Type = "team-selected"
	TypeVoteCast          Type = "vote-cast"
	TypeVotingCompleted   Type = "voting-completed"
	TypeMissionChoiceMade Type = "mission-choice-made"
	TypeMissionCompleted  Type = "mission-completed"
	TypeLeadershipChanged Type = "leadership-changed"
	TypeGameEnded         Type = "game-ended"
	TypeGameReset         Type = "game-reset"
)

// Data is the per-type payload union. Each event Type has exactly one
// concrete Data struct carrying only the fields that type requires, so the
// reducer can switch on the payload type exhaustively instead of digging
// through untyped maps.
type Data interface {
	eventType() Type
}

// PlayerJoined announces a new player in the room.
type PlayerJoined struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// PlayerLeft announces a player leaving the room.
type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

// PlayerReady carries a ready-state toggle.
type PlayerReady struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

// RolesAssigned carries the full role assignment computed by the replica
// that started the game, plus the first mission leader.
type RolesAssigned struct {
	Roles       map[string]string `json:"roles"`
	FirstLeader string            `json:"firstLeader"`
}

// TeamSelected carries the leader's proposed mission team.
type TeamSelected struct {
	SelectedTeam []string `json:"selectedTeam"`
}

// VoteCast carries a single public team vote. The voter is the envelope
// sender.
type VoteCast struct {
	Vote bool `json:"vote"`
}

// VotingCompleted is informational: each replica detects round completion
// from its own accumulated votes, so folding this is not what drives the
// transition.
type VotingCompleted struct {
	Votes         map[string]bool `json:"votes"`
	Result        bool            `json:"result"`
	MissionNumber int             `json:"missionNumber"`
}

// MissionChoiceMade carries a team member's mission choice (success=true).
type MissionChoiceMade struct {
	Choice bool `json:"choice"`
}

// Scores is a cumulative score pair.
type Scores struct {
	Resistance int `json:"resistance"`
	Spy        int `json:"spy"`
}

// MissionCompleted carries the cumulative scores after a mission resolves.
type MissionCompleted struct {
	NewScores Scores `json:"newScores"`
}

// LeadershipChanged announces the next mission leader.
type LeadershipChanged struct {
	NewLeader string `json:"newLeader"`
	Reason    string `json:"reason"`
}

// GameEnded announces termination with the final scores.
type GameEnded struct {
	FinalScores Scores `json:"finalScores"`
}

// GameReset returns a finished session to the lobby for a replay, keeping
// the room code and connected players.
type GameReset struct{}

func (PlayerJoined) eventType() Type      { return TypePlayerJoined }
func (PlayerLeft) eventType() Type        { return TypePlayerLeft }
func (PlayerReady) eventType() Type       { return TypePlayerReady }
func (RolesAssigned) eventType() Type     { return TypeRolesAssigned }
func (TeamSelected) eventType() Type      { return TypeTeamSelected }
func (VoteCast) eventType() Type          { return TypeVoteCast }
func (VotingCompleted) eventType() Type   { return TypeVotingCompleted }
func (MissionChoiceMade) eventType() Type { return TypeMissionChoiceMade }
func (MissionCompleted) eventType() Type  { return TypeMissionCompleted }
func (LeadershipChanged) eventType() Type { return TypeLeadershipChanged }
func (GameEnded) eventType() Type         { return TypeGameEnded }
func (GameReset) eventType() Type         { return TypeGameReset }

// Event is the wire envelope broadcast on a room channel.
type Event struct {
	Type      Type   `json:"type"`
	RoomCode  string `json:"roomCode"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
	Data      Data   `json:"data"`
}

// New builds an envelope for the given payload, stamping the current time in
// epoch milliseconds. The envelope type is derived from the payload type so
// the two can never disagree.
func New(roomCode, senderID string, data Data) Event {
	return Event{
		Type:      data.eventType(),
		RoomCode:  roomCode,
		SenderID:  senderID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// envelope mirrors Event with the payload left raw for two-phase decoding.
type envelope struct {
	Type      Type            `json:"type"`
	RoomCode  string          `json:"roomCode"`
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes the envelope, then decodes the payload into the
// concrete Data struct matching the envelope type.
func (e *Event) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	data, err := newData(env.Type)
	if err != nil {
		return err
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
	}
	e.Type = env.Type
	e.RoomCode = env.RoomCode
	e.SenderID = env.SenderID
	e.Timestamp = env.Timestamp
	e.Data = data
	return nil
}

func newData(t Type) (Data, error) {
	switch t {
	case TypePlayerJoined:
		return &PlayerJoined{}, nil
	case TypePlayerLeft:
		return &PlayerLeft{}, nil
	case TypePlayerReady:
		return &PlayerReady{}, nil
	case TypeRolesAssigned:
		return &RolesAssigned{}, nil
	case TypeTeamSelected:
		return &TeamSelected{}, nil
	case TypeVoteCast:
		return &VoteCast{}, nil
	case TypeVotingCompleted:
		return &VotingCompleted{}, nil
	case TypeMissionChoiceMade:
		return &MissionChoiceMade{}, nil
	case TypeMissionCompleted:
		return &MissionCompleted{}, nil
	case TypeLeadershipChanged:
		return &LeadershipChanged{}, nil
	case TypeGameEnded:
		return &GameEnded{}, nil
	case TypeGameReset:
		return &GameReset{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}
