package commands

import (
	"ranked/contexts/tabulation/election-engine/domain/entities"
	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
	"ranked/contexts/tabulation/election-engine/ports"
)

// InstantRunoff resolves a winner by iterative last-place elimination. This
// is the default method.
type InstantRunoff struct{}

func (InstantRunoff) Name() string {
	return entities.MethodInstantRunoff
}

func (InstantRunoff) ResolveWinner(tab *entities.Tabulation) (string, error) {
	return tab.RunSingleWinner()
}

// Condorcet is registered so the method can be requested, but pairwise
// resolution is not implemented. It fails instead of quietly running IRV.
type Condorcet struct{}

func (Condorcet) Name() string {
	return entities.MethodCondorcet
}

func (Condorcet) ResolveWinner(_ *entities.Tabulation) (string, error) {
	return "", domainerrors.ErrMethodUnsupported
}

func defaultMethods() []ports.ResolutionMethod {
	return []ports.ResolutionMethod{InstantRunoff{}, Condorcet{}}
}
