// internal/game/roles.go
package game

import (
	"math/rand"
	"time"
)

// Role is a player's hidden team affiliation.
type Role string

const (
	RoleUnassigned Role = ""
	RoleResistance Role = "resistance"
	RoleSpy        Role = "spy"

	// RoleHidden is only ever produced by the visibility projection; it is
	// never stored in session state.
	RoleHidden Role = "hidden"
)

type roleSplit struct {
	resistance int
	spies      int
}

// roleTable is the fixed role distribution per player count.
var roleTable = map[int]roleSplit{
	5:  {3, 2},
	6:  {4, 2},
	7:  {4, 3},
	8:  {5, 3},
	9:  {6, 3},
	10: {6, 4},
}

// AssignRoles deals hidden roles to the given players. The multiset of roles
// is fixed by the table for len(playerIDs); the permutation is a fresh
// uniform shuffle on every call, so no player is favored across repeated
// games.
func AssignRoles(playerIDs []string) (map[string]Role, error) {
	split, ok := roleTable[len(playerIDs)]
	if !ok {
		return nil, ErrInvalidPlayerCount
	}

	tags := make([]Role, 0, len(playerIDs))
	for i := 0; i < split.resistance; i++ {
		tags = append(tags, RoleResistance)
	}
	for i := 0; i < split.spies; i++ {
		tags = append(tags, RoleSpy)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(tags), func(i, j int) {
		tags[i], tags[j] = tags[j], tags[i]
	})

	assigned := make(map[string]Role, len(playerIDs))
	for i, id := range playerIDs {
		assigned[id] = tags[i]
	}
	return assigned, nil
}

// VisibleRoles projects the role each player shows to the given viewer.
// Spies see every true role; resistance members see only their own. This is
// a read-only projection recomputed on demand, never cached.
func VisibleRoles(viewer *Player, players []*Player) map[string]Role {
	visible := make(map[string]Role, len(players))
	for _, p := range players {
		switch {
		case viewer == nil:
			visible[p.ID] = RoleHidden
		case viewer.Role == RoleSpy:
			visible[p.ID] = p.Role
		case p.ID == viewer.ID:
			visible[p.ID] = p.Role
		default:
			visible[p.ID] = RoleHidden
		}
	}
	return visible
}
