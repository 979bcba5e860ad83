package commands

import (
	"fmt"
	"strings"

	"ranked/contexts/tabulation/election-engine/domain/entities"
	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
)

// RankingValidator is the default ballot validation capability: weight at
// least one, a non-empty ranking, no candidate repeated within the ranking,
// and every ranked name registered for the election.
type RankingValidator struct{}

func (RankingValidator) Validate(ballot entities.Ballot, candidates []string) error {
	if ballot.Weight < 1 {
		return fmt.Errorf("%w: weight must be at least 1", domainerrors.ErrInvalidBallot)
	}
	if len(ballot.Ranking) == 0 {
		return fmt.Errorf("%w: ranking is empty", domainerrors.ErrInvalidBallot)
	}
	registered := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		registered[name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(ballot.Ranking))
	for _, name := range ballot.Ranking {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || trimmed != name {
			return fmt.Errorf("%w: malformed candidate name %q", domainerrors.ErrInvalidBallot, name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: candidate %q ranked twice", domainerrors.ErrInvalidBallot, name)
		}
		seen[name] = struct{}{}
		if _, ok := registered[name]; !ok {
			return fmt.Errorf("%w: unknown candidate %q", domainerrors.ErrInvalidBallot, name)
		}
	}
	return nil
}
