// internal/game/vote.go
package game

// VoteTally is the aggregate outcome of one team-approval round.
type VoteTally struct {
	Approved bool
	Yes      int
	No       int
}

// TallyVotes counts a voting round. Approval requires a strict majority;
// ties count as rejection, which also settles the even-voter-count case.
func TallyVotes(votes map[string]bool) VoteTally {
	var tally VoteTally
	for _, vote := range votes {
		if vote {
			tally.Yes++
		} else {
			tally.No++
		}
	}
	tally.Approved = tally.Yes > tally.No
	return tally
}
