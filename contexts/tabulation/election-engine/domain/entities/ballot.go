package entities

// Ballot is a weighted, ordered list of candidate preferences. Ballots are
// immutable once cast; a ballot's effective rank is recomputed each round by
// scanning Ranking for the first candidate still in the running.
type Ballot struct {
	Weight  int
	Ranking []string
}

// Votes returns the ballot's vote contribution. The zero value of Weight
// counts as a single vote so uninitialized ballots stay well-formed.
func (b Ballot) Votes() int {
	if b.Weight < 1 {
		return 1
	}
	return b.Weight
}
