// internal/game/state.go
package game

import (
	"fmt"
	"time"
)

// Player bounds for a session once the game leaves the lobby.
const (
	MinPlayers = 5
	MaxPlayers = 10
)

// Player is one participant's entry in the shared session state.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        Role   `json:"role,omitempty"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
}

// LogEntry is one line of the session's public audit log. Log entries never
// contain individual mission choices; sabotage stays anonymous even here.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Mission outcomes as recorded in MissionResult.
const (
	MissionSuccess = "success"
	MissionFailure = "failure"
)

// MissionResult is the immutable record of one completed mission. Scores are
// cumulative after the mission resolved.
type MissionResult struct {
	MissionNumber    int             `json:"missionNumber"`
	RequiredPlayers  int             `json:"requiredPlayers"`
	SelectedPlayers  []string        `json:"selectedPlayers"`
	Votes            map[string]bool `json:"votes"`
	MissionChoices   map[string]bool `json:"missionChoices"`
	Outcome          string          `json:"outcome"`
	ResistancePoints int             `json:"resistancePoints"`
	SpyPoints        int             `json:"spyPoints"`
}

// SessionState is the full replicated state of one room. Every connected
// client holds its own copy, mutated only through the reducer, and all
// copies converge as events arrive.
type SessionState struct {
	RoomCode             string          `json:"roomCode"`
	Phase                Phase           `json:"phase"`
	Players              []*Player       `json:"players"`
	CurrentLeaderID      string          `json:"currentLeaderId"`
	CurrentMissionNumber int             `json:"currentMissionNumber"`
	MissionHistory       []MissionResult `json:"missionHistory"`
	ResistanceScore      int             `json:"resistanceScore"`
	SpyScore             int             `json:"spyScore"`
	SelectedTeam         []string        `json:"selectedTeam"`
	CurrentVotes         map[string]bool `json:"currentVotes"`
	MissionChoices       map[string]bool `json:"missionChoices"`
	GameLog              []LogEntry      `json:"gameLog"`
}

// NewSessionState creates the lobby-phase state for a freshly opened room.
func NewSessionState(roomCode string) *SessionState {
	return &SessionState{
		RoomCode:       roomCode,
		Phase:          PhaseLobby,
		CurrentVotes:   make(map[string]bool),
		MissionChoices: make(map[string]bool),
	}
}

// GetPlayer returns the player with the given id, or nil.
func (s *SessionState) GetPlayer(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerName resolves an id to a display name, falling back to the id for
// players that already left.
func (s *SessionState) PlayerName(id string) string {
	if p := s.GetPlayer(id); p != nil {
		return p.Name
	}
	return id
}

// ConnectedPlayers returns the players currently marked connected.
func (s *SessionState) ConnectedPlayers() []*Player {
	connected := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.IsConnected {
			connected = append(connected, p)
		}
	}
	return connected
}

// ReadyCount returns how many connected players are marked ready.
func (s *SessionState) ReadyCount() int {
	count := 0
	for _, p := range s.Players {
		if p.IsConnected && p.IsReady {
			count++
		}
	}
	return count
}

// OnTeam reports whether the given player is on the selected mission team.
func (s *SessionState) OnTeam(id string) bool {
	for _, member := range s.SelectedTeam {
		if member == id {
			return true
		}
	}
	return false
}

// Leader returns the current mission leader, or nil before assignment.
func (s *SessionState) Leader() *Player {
	return s.GetPlayer(s.CurrentLeaderID)
}

// Logf appends a formatted entry to the session log.
func (s *SessionState) Logf(format string, args ...interface{}) {
	s.GameLog = append(s.GameLog, LogEntry{
		Timestamp: time.Now(),
		Message:   fmt.Sprintf(format, args...),
	})
}

// Clone returns a deep copy safe to hand to UI code while the original keeps
// mutating under the session lock.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		out.Players[i] = &cp
	}
	out.MissionHistory = make([]MissionResult, len(s.MissionHistory))
	copy(out.MissionHistory, s.MissionHistory)
	out.SelectedTeam = append([]string(nil), s.SelectedTeam...)
	out.CurrentVotes = copyBoolMap(s.CurrentVotes)
	out.MissionChoices = copyBoolMap(s.MissionChoices)
	out.GameLog = append([]LogEntry(nil), s.GameLog...)
	return &out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
