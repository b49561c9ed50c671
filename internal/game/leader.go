// internal/game/leader.go
package game

import "sort"

// connectedByName returns the currently connected players sorted by name in
// ascending byte order. Names are unique within a session, but the sort
// still tie-breaks on ID so the order is total on every replica.
func connectedByName(players []*Player) []*Player {
	sorted := make([]*Player, 0, len(players))
	for _, p := range players {
		if p.IsConnected {
			sorted = append(sorted, p)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// FirstLeader picks the initial mission leader: the connected player whose
// name sorts first.
func FirstLeader(players []*Player) (string, error) {
	sorted := connectedByName(players)
	if len(sorted) == 0 {
		return "", ErrNoConnectedPlayers
	}
	return sorted[0].ID, nil
}

// NextLeader returns the player who leads after currentLeaderID: the next
// connected player in name order, wrapping past the end. If the current
// leader is no longer connected, leadership falls to the first player in
// sorted order.
func NextLeader(players []*Player, currentLeaderID string) (string, error) {
	sorted := connectedByName(players)
	if len(sorted) == 0 {
		return "", ErrNoConnectedPlayers
	}
	for i, p := range sorted {
		if p.ID == currentLeaderID {
			return sorted[(i+1)%len(sorted)].ID, nil
		}
	}
	return sorted[0].ID, nil
}
