package entities

import (
	"math/rand"
	"sort"
	"time"

	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
)

// Tabulation is the single-winner instant-runoff engine. It owns the ballot
// set, the candidate-to-assigned-ballots mapping, the eliminated set and the
// round counter, and it mutates round by round inside RunSingleWinner until a
// winner is set. All randomness (candidate shuffling, tie-breaks) flows from
// the one generator injected at construction, so a fixed seed reproduces the
// winner and the flow graph exactly.
//
// Bookkeeping invariants held at every round boundary:
//   - active vote total + exhausted vote total == total votes cast
//   - eliminated and active candidates partition the registered set
//   - an eliminated candidate never re-enters the active mapping and never
//     receives transfers
type Tabulation struct {
	rng        *rand.Rand
	ballots    []Ballot
	assigned   map[string][]Ballot
	order      []string
	eliminated map[string]struct{}
	total      int
	frozen     bool
	winner     string
	exhausted  int
	rounds     int
	flow       *FlowGraph
}

// NewTabulation builds an empty engine around rng. A nil rng falls back to a
// clock-seeded generator; callers that need reproducibility pass their own.
func NewTabulation(rng *rand.Rand) *Tabulation {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tabulation{
		rng:        rng,
		assigned:   make(map[string][]Ballot),
		eliminated: make(map[string]struct{}),
		flow:       NewFlowGraph(),
	}
}

// AddCandidates registers candidates with empty ballot lists. Names are
// deduplicated and riffle-shuffled so tie resolution cannot be steered by
// input order. Must be called before ballots are assigned.
func (t *Tabulation) AddCandidates(names []string) {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		if _, ok := t.assigned[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	riffle(t.rng, unique)
	for _, name := range unique {
		t.assigned[name] = nil
		t.order = append(t.order, name)
	}
}

// AddBallot appends a ballot. The engine performs no validation here; the
// surrounding system is expected to have run the ballot through a validator
// before this call.
func (t *Tabulation) AddBallot(ballot Ballot) {
	t.ballots = append(t.ballots, ballot)
}

// AssignBallots freezes the candidate count and hands every ballot to the
// first registered candidate in its ranking. A ballot whose ranking names no
// registered candidate is exhausted on the spot. Calling this twice assigns
// every ballot twice; the engine does not guard against it.
func (t *Tabulation) AssignBallots() error {
	if len(t.assigned) == 0 {
		if len(t.ballots) > 0 {
			return domainerrors.ErrDegenerateElection
		}
		return domainerrors.ErrNoCandidates
	}
	t.total = len(t.assigned) + len(t.eliminated)
	t.frozen = true
	for _, ballot := range t.ballots {
		placed := false
		for _, name := range ballot.Ranking {
			if _, ok := t.assigned[name]; ok {
				t.assigned[name] = append(t.assigned[name], ballot)
				placed = true
				break
			}
		}
		if !placed {
			t.exhausted += ballot.Votes()
		}
	}
	return nil
}

// CurrentRanking returns active candidates ordered by descending vote count.
// Ties keep the shuffled registration order, so the ranking is deterministic
// for a fixed seed even though it is independent of caller input order.
func (t *Tabulation) CurrentRanking() []string {
	ranking := make([]string, 0, len(t.assigned))
	for _, name := range t.order {
		if _, ok := t.assigned[name]; ok {
			ranking = append(ranking, name)
		}
	}
	counts := t.currentCounts()
	sort.SliceStable(ranking, func(i, j int) bool {
		return counts[ranking[i]] > counts[ranking[j]]
	})
	return ranking
}

// RunSingleWinner executes the elimination loop: rank, eliminate last place
// (uniform random pick among every candidate tied at the minimum), transfer
// the eliminee's ballots to each voter's next eligible choice, and record the
// round's vote flow. It terminates once a single active candidate remains and
// returns that candidate as the winner.
func (t *Tabulation) RunSingleWinner() (string, error) {
	if !t.frozen {
		if err := t.AssignBallots(); err != nil {
			return "", err
		}
	}
	if t.total == 0 {
		return "", domainerrors.ErrNoCandidates
	}

	layer := 1
	counts := t.currentCounts()
	for _, name := range t.order {
		if _, ok := t.assigned[name]; !ok {
			continue
		}
		if counts[name] > 0 {
			t.flow.AddNode(name, layer, counts[name])
		}
	}

	for len(t.eliminated) < t.total-1 {
		ranking := t.CurrentRanking()
		counts = t.currentCounts()
		last := t.lastPlace(ranking, counts)

		t.eliminated[last] = struct{}{}
		t.rounds++

		// A zero-ballot eliminee transfers nothing and leaves no trace in
		// the flow graph: the layer does not advance.
		if len(t.assigned[last]) == 0 {
			delete(t.assigned, last)
			continue
		}

		starting := counts
		transfers := make(map[string]int)
		recipients := make([]string, 0)
		for _, ballot := range t.assigned[last] {
			moved := false
			for _, name := range ballot.Ranking {
				if name == last {
					continue
				}
				if _, ok := t.assigned[name]; !ok {
					continue
				}
				if _, ok := transfers[name]; !ok {
					recipients = append(recipients, name)
				}
				transfers[name] += ballot.Votes()
				t.assigned[name] = append(t.assigned[name], ballot)
				moved = true
				break
			}
			if !moved {
				// Every remaining preference is gone: the ballot is
				// permanently exhausted but still counted.
				t.exhausted += ballot.Votes()
			}
		}
		delete(t.assigned, last)

		layer++
		counts = t.currentCounts()
		for _, name := range t.order {
			if _, ok := t.assigned[name]; !ok {
				continue
			}
			value := 0
			if layer <= 2 {
				value = counts[name]
			}
			t.flow.AddNode(name, layer, value)
		}
		for _, name := range t.order {
			if _, ok := t.assigned[name]; !ok {
				continue
			}
			if err := t.flow.Link(name, layer-1, name, layer, starting[name]); err != nil {
				return "", err
			}
		}
		for _, name := range recipients {
			if err := t.flow.Link(last, layer-1, name, layer, transfers[name]); err != nil {
				return "", err
			}
		}
	}

	for name := range t.assigned {
		t.winner = name
	}
	return t.winner, nil
}

// lastPlace picks the elimination target: the minimum count is taken from the
// bottom of the ranking and the tie set collects every candidate holding that
// count anywhere in the order, then one is drawn uniformly.
func (t *Tabulation) lastPlace(ranking []string, counts map[string]int) string {
	lowest := counts[ranking[len(ranking)-1]]
	tied := make([]string, 0, 1)
	for _, name := range ranking {
		if counts[name] == lowest {
			tied = append(tied, name)
		}
	}
	return tied[t.rng.Intn(len(tied))]
}

// Winner returns the resolved winner, empty until the tabulation completes.
func (t *Tabulation) Winner() string {
	return t.winner
}

// Rounds returns how many elimination rounds have run.
func (t *Tabulation) Rounds() int {
	return t.rounds
}

// VotesFor returns the candidate's current weighted vote count.
func (t *Tabulation) VotesFor(name string) int {
	total := 0
	for _, ballot := range t.assigned[name] {
		total += ballot.Votes()
	}
	return total
}

// TotalVotes returns the weighted size of the full ballot set.
func (t *Tabulation) TotalVotes() int {
	total := 0
	for _, ballot := range t.ballots {
		total += ballot.Votes()
	}
	return total
}

// ExhaustedVotes returns the weighted count of ballots with no remaining
// eligible preference.
func (t *Tabulation) ExhaustedVotes() int {
	return t.exhausted
}

// FlowGraph exposes the recorded vote-flow topology. It describes historical
// transitions only; the elimination algorithm never reads it.
func (t *Tabulation) FlowGraph() *FlowGraph {
	return t.flow
}

// Summary derives the status counters: registered candidates, total votes,
// candidates still active, and exhausted votes.
func (t *Tabulation) Summary() Summary {
	totalCandidates := t.total
	if !t.frozen {
		totalCandidates = len(t.assigned) + len(t.eliminated)
	}
	return Summary{
		TotalCandidates:     totalCandidates,
		TotalVotes:          t.TotalVotes(),
		RemainingCandidates: len(t.assigned),
		ExhaustedVotes:      t.exhausted,
	}
}

// DroopQuotaSatisfied reports whether the winner's final count exceeds
// floor(total votes / seats). Purely derived; no state is touched.
func (t *Tabulation) DroopQuotaSatisfied(seats int) bool {
	if t.winner == "" || seats < 1 {
		return false
	}
	return t.VotesFor(t.winner) > t.TotalVotes()/seats
}

func (t *Tabulation) currentCounts() map[string]int {
	counts := make(map[string]int, len(t.assigned))
	for name, ballots := range t.assigned {
		total := 0
		for _, ballot := range ballots {
			total += ballot.Votes()
		}
		counts[name] = total
	}
	return counts
}

// Summary is the derived status report for a tabulation.
type Summary struct {
	TotalCandidates     int
	TotalVotes          int
	RemainingCandidates int
	ExhaustedVotes      int
}
