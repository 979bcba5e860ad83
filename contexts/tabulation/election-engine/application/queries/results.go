package queries

import (
	"context"
	"strings"

	"ranked/contexts/tabulation/election-engine/domain/entities"
	"ranked/contexts/tabulation/election-engine/ports"
)

// ElectionResult is the read model for a finished (or still open) election.
// DroopSatisfied is derived at read time from the stored counts.
type ElectionResult struct {
	ElectionID     string
	Name           string
	Status         entities.ElectionStatus
	Method         string
	Winner         string
	Rounds         int
	WinnerVotes    int
	TotalVotes     int
	Seats          int
	DroopSatisfied bool
}

// ElectionSummary mirrors the engine's derived status counters for an
// election record.
type ElectionSummary struct {
	ElectionID          string
	Status              entities.ElectionStatus
	TotalCandidates     int
	TotalVotes          int
	RemainingCandidates int
	ExhaustedVotes      int
}

// ResultsUseCase serves the derived read side: results, droop checks, the
// flow-graph export document, and summary counters. No state mutation.
type ResultsUseCase struct {
	Elections ports.ElectionRepository
	Flows     ports.FlowExporter
}

// Results returns the election outcome plus the droop-quota check for the
// requested seat count. Seats below one default to a single seat.
func (uc ResultsUseCase) Results(ctx context.Context, electionID string, seats int) (ElectionResult, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return ElectionResult{}, err
	}
	if seats < 1 {
		seats = 1
	}
	result := ElectionResult{
		ElectionID:  election.ElectionID,
		Name:        election.Name,
		Status:      election.Status,
		Method:      election.Method,
		Winner:      election.Winner,
		Rounds:      election.Rounds,
		WinnerVotes: election.WinnerVotes,
		TotalVotes:  election.TotalVotes,
		Seats:       seats,
	}
	if election.Status == entities.ElectionStatusTabulated {
		result.DroopSatisfied = election.WinnerVotes > election.TotalVotes/seats
	}
	return result, nil
}

// FlowGraph returns the stored Sankey export document for an election.
func (uc ResultsUseCase) FlowGraph(ctx context.Context, electionID string) (ports.SankeyExport, error) {
	return uc.Flows.GetFlowGraph(ctx, strings.TrimSpace(electionID))
}

// Summary returns the status counters. For an election that is still open
// the vote total is computed from the ballots cast so far.
func (uc ResultsUseCase) Summary(ctx context.Context, electionID string) (ElectionSummary, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return ElectionSummary{}, err
	}
	summary := ElectionSummary{
		ElectionID:          election.ElectionID,
		Status:              election.Status,
		TotalCandidates:     election.TotalCandidates,
		TotalVotes:          election.TotalVotes,
		RemainingCandidates: election.RemainingCandidates,
		ExhaustedVotes:      election.ExhaustedVotes,
	}
	if election.IsOpen() {
		ballots, err := uc.Elections.ListBallots(ctx, election.ElectionID)
		if err != nil {
			return ElectionSummary{}, err
		}
		total := 0
		for _, ballot := range ballots {
			total += ballot.Votes()
		}
		summary.TotalVotes = total
	}
	return summary, nil
}
