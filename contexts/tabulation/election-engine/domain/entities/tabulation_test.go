package entities

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
)

func seededTabulation(seed int64) *Tabulation {
	return NewTabulation(rand.New(rand.NewSource(seed)))
}

func TestRunSingleWinnerThreeWayContest(t *testing.T) {
	tab := seededTabulation(42)
	tab.AddCandidates([]string{"A", "B", "C"})
	for i := 0; i < 3; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"A", "B", "C"}})
	}
	for i := 0; i < 2; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"B", "C", "A"}})
	}
	for i := 0; i < 2; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"C", "A", "B"}})
	}

	winner, err := tab.RunSingleWinner()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	// B and C open tied at 2. If B falls first its ballots flow to C and C
	// takes the final round; if C falls first its ballots flow to A and A
	// takes it. B can never survive to the final round.
	if winner != "A" && winner != "C" {
		t.Fatalf("expected winner A or C, got %q", winner)
	}
	if got := tab.VotesFor(winner); got < 4 {
		t.Fatalf("expected winner to hold at least 4 votes, got %d", got)
	}
	if tab.Rounds() != 2 {
		t.Fatalf("expected 2 elimination rounds, got %d", tab.Rounds())
	}
	if tab.VotesFor(winner)+tab.ExhaustedVotes() != tab.TotalVotes() {
		t.Fatalf("vote conservation broken: winner=%d exhausted=%d total=%d",
			tab.VotesFor(winner), tab.ExhaustedVotes(), tab.TotalVotes())
	}
}

func TestRunSingleWinnerSingleCandidate(t *testing.T) {
	tab := seededTabulation(1)
	tab.AddCandidates([]string{"A"})
	tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"A"}})

	winner, err := tab.RunSingleWinner()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if winner != "A" {
		t.Fatalf("expected winner A, got %q", winner)
	}
	if tab.Rounds() != 0 {
		t.Fatalf("expected zero elimination rounds, got %d", tab.Rounds())
	}
}

func TestRunSingleWinnerExhaustsTruncatedBallot(t *testing.T) {
	tab := seededTabulation(7)
	tab.AddCandidates([]string{"X", "Y", "Z"})
	tab.AddBallot(Ballot{Weight: 2, Ranking: []string{"X"}})
	for i := 0; i < 3; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"Y", "Z"}})
	}
	for i := 0; i < 4; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"Z", "Y"}})
	}

	winner, err := tab.RunSingleWinner()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	// X holds the unique minimum and falls in round one; its weight-2 ballot
	// lists nobody else and exhausts. Y's ballots then transfer to Z.
	if winner != "Z" {
		t.Fatalf("expected winner Z, got %q", winner)
	}
	if tab.ExhaustedVotes() != 2 {
		t.Fatalf("expected 2 exhausted votes, got %d", tab.ExhaustedVotes())
	}
	if tab.VotesFor("Z") != 7 {
		t.Fatalf("expected Z to finish with 7 votes, got %d", tab.VotesFor("Z"))
	}
	if tab.VotesFor("Z")+tab.ExhaustedVotes() != tab.TotalVotes() {
		t.Fatalf("vote conservation broken: winner=%d exhausted=%d total=%d",
			tab.VotesFor("Z"), tab.ExhaustedVotes(), tab.TotalVotes())
	}
}

func TestRunSingleWinnerZeroBallotEliminationsLeaveNoFlowTrace(t *testing.T) {
	tab := seededTabulation(11)
	tab.AddCandidates([]string{"A", "B", "C"})
	for i := 0; i < 5; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"C"}})
	}

	winner, err := tab.RunSingleWinner()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if winner != "C" {
		t.Fatalf("expected winner C, got %q", winner)
	}
	if tab.Rounds() != 2 {
		t.Fatalf("expected 2 elimination rounds, got %d", tab.Rounds())
	}

	// A and B never held a ballot, so neither transfers nor flow layers are
	// recorded for their eliminations.
	nodes := tab.FlowGraph().Nodes()
	if len(nodes) != 1 {
		t.Fatalf("expected a single flow node, got %d", len(nodes))
	}
	if nodes[0].Name != "C" || nodes[0].Layer != 1 || nodes[0].Value != 5 {
		t.Fatalf("unexpected flow node: %+v", nodes[0])
	}
	if links := tab.FlowGraph().Links(); len(links) != 0 {
		t.Fatalf("expected no flow links, got %d", len(links))
	}
}

func TestRunSingleWinnerIsDeterministicForFixedSeed(t *testing.T) {
	build := func() *Tabulation {
		tab := seededTabulation(99)
		tab.AddCandidates([]string{"north", "south", "east", "west"})
		tab.AddBallot(Ballot{Weight: 3, Ranking: []string{"north", "east"}})
		tab.AddBallot(Ballot{Weight: 2, Ranking: []string{"south", "west"}})
		tab.AddBallot(Ballot{Weight: 2, Ranking: []string{"east", "north"}})
		tab.AddBallot(Ballot{Weight: 2, Ranking: []string{"west", "south"}})
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"south"}})
		return tab
	}

	first := build()
	second := build()

	firstWinner, err := first.RunSingleWinner()
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	secondWinner, err := second.RunSingleWinner()
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if firstWinner != secondWinner {
		t.Fatalf("seeded runs disagree on winner: %q vs %q", firstWinner, secondWinner)
	}
	if !reflect.DeepEqual(first.FlowGraph().Nodes(), second.FlowGraph().Nodes()) {
		t.Fatalf("seeded runs disagree on flow nodes")
	}
	if !reflect.DeepEqual(first.FlowGraph().Links(), second.FlowGraph().Links()) {
		t.Fatalf("seeded runs disagree on flow links")
	}
}

func TestRunSingleWinnerNoCandidates(t *testing.T) {
	tab := seededTabulation(5)

	if _, err := tab.RunSingleWinner(); !errors.Is(err, domainerrors.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestAssignBallotsWithoutCandidatesIsDegenerate(t *testing.T) {
	tab := seededTabulation(5)
	tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"A"}})

	if err := tab.AssignBallots(); !errors.Is(err, domainerrors.ErrDegenerateElection) {
		t.Fatalf("expected ErrDegenerateElection, got %v", err)
	}
}

func TestAssignBallotsExhaustsUnknownRankings(t *testing.T) {
	tab := seededTabulation(3)
	tab.AddCandidates([]string{"A", "B"})
	tab.AddBallot(Ballot{Weight: 4, Ranking: []string{"nobody", "missing"}})
	tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"A"}})

	if err := tab.AssignBallots(); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if tab.ExhaustedVotes() != 4 {
		t.Fatalf("expected 4 exhausted votes, got %d", tab.ExhaustedVotes())
	}
	if tab.VotesFor("A") != 1 {
		t.Fatalf("expected A to hold 1 vote, got %d", tab.VotesFor("A"))
	}
}

func TestCurrentRankingOrdersByDescendingWeight(t *testing.T) {
	tab := seededTabulation(17)
	tab.AddCandidates([]string{"A", "B", "C"})
	tab.AddBallot(Ballot{Weight: 5, Ranking: []string{"B"}})
	tab.AddBallot(Ballot{Weight: 3, Ranking: []string{"C"}})
	tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"A"}})

	if err := tab.AssignBallots(); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	ranking := tab.CurrentRanking()
	want := []string{"B", "C", "A"}
	if !reflect.DeepEqual(ranking, want) {
		t.Fatalf("expected ranking %v, got %v", want, ranking)
	}
}

func TestAddCandidatesDeduplicates(t *testing.T) {
	tab := seededTabulation(2)
	tab.AddCandidates([]string{"A", "B", "A", "B", "C"})

	summary := tab.Summary()
	if summary.TotalCandidates != 3 {
		t.Fatalf("expected 3 candidates, got %d", summary.TotalCandidates)
	}
}

func TestDroopQuotaSatisfied(t *testing.T) {
	tab := seededTabulation(23)
	tab.AddCandidates([]string{"A", "B"})
	for i := 0; i < 6; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"A", "B"}})
	}
	for i := 0; i < 3; i++ {
		tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"B", "A"}})
	}

	winner, err := tab.RunSingleWinner()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if winner != "A" {
		t.Fatalf("expected winner A, got %q", winner)
	}
	// A finishes with 9 of 9 votes: quota floor(9/1)=9 fails strictly-greater
	// for one seat only when the winner holds everything. 9 > 9 is false, so
	// use two seats where floor(9/2)=4 and 9 > 4 holds.
	if tab.DroopQuotaSatisfied(1) {
		t.Fatalf("expected single-seat quota to fail when winner count equals total")
	}
	if !tab.DroopQuotaSatisfied(2) {
		t.Fatalf("expected two-seat quota to pass")
	}
	if tab.DroopQuotaSatisfied(0) {
		t.Fatalf("expected zero seats to fail the quota check")
	}
}

func TestSummaryTracksEliminations(t *testing.T) {
	tab := seededTabulation(31)
	tab.AddCandidates([]string{"A", "B", "C"})
	tab.AddBallot(Ballot{Weight: 4, Ranking: []string{"A"}})
	tab.AddBallot(Ballot{Weight: 2, Ranking: []string{"B", "A"}})
	tab.AddBallot(Ballot{Weight: 1, Ranking: []string{"C", "B"}})

	if _, err := tab.RunSingleWinner(); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	summary := tab.Summary()
	if summary.TotalCandidates != 3 {
		t.Fatalf("expected 3 total candidates, got %d", summary.TotalCandidates)
	}
	if summary.RemainingCandidates != 1 {
		t.Fatalf("expected 1 remaining candidate, got %d", summary.RemainingCandidates)
	}
	if summary.TotalVotes != 7 {
		t.Fatalf("expected 7 total votes, got %d", summary.TotalVotes)
	}
}

func TestBallotVotesDefaultsToOne(t *testing.T) {
	if got := (Ballot{Ranking: []string{"A"}}).Votes(); got != 1 {
		t.Fatalf("expected zero-weight ballot to count once, got %d", got)
	}
	if got := (Ballot{Weight: 3}).Votes(); got != 3 {
		t.Fatalf("expected weight-3 ballot to count 3, got %d", got)
	}
}
