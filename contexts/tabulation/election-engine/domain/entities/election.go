package entities

import "time"

type ElectionStatus string

const (
	ElectionStatusOpen      ElectionStatus = "open"
	ElectionStatusTabulated ElectionStatus = "tabulated"
	ElectionStatusFailed    ElectionStatus = "failed"
)

// Resolution method names accepted by the service. Only instant-runoff is
// implemented; condorcet is an explicit not-implemented contract.
const (
	MethodInstantRunoff = "instant_runoff"
	MethodCondorcet     = "condorcet"
)

// Election is the persisted record a tabulation runs against. Candidates and
// the RNG seed are fixed at creation so a tabulation can be rebuilt and
// reproduced at any time; the result fields are filled in when the election
// transitions to tabulated and never change afterwards.
type Election struct {
	ElectionID          string
	Name                string
	Candidates          []string
	Method              string
	Seed                int64
	Status              ElectionStatus
	Winner              string
	Rounds              int
	TotalCandidates     int
	TotalVotes          int
	WinnerVotes         int
	ExhaustedVotes      int
	RemainingCandidates int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	TabulatedAt         *time.Time
}

func (e Election) IsOpen() bool {
	return e.Status == ElectionStatusOpen
}
