package httpadapter

import (
	"context"
	"log/slog"

	"ranked/contexts/tabulation/election-engine/application/commands"
	"ranked/contexts/tabulation/election-engine/application/queries"
	"ranked/contexts/tabulation/election-engine/ports"
	httptransport "ranked/contexts/tabulation/election-engine/transport/http"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	result, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name:           req.Name,
		Candidates:     req.Candidates,
		Method:         req.Method,
		Seed:           req.Seed,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return httptransport.ElectionResponse{
		ElectionID:          result.Election.ElectionID,
		Name:                result.Election.Name,
		Candidates:          result.Election.Candidates,
		Method:              result.Election.Method,
		Seed:                result.Election.Seed,
		Status:              string(result.Election.Status),
		TotalCandidates:     result.Election.TotalCandidates,
		RemainingCandidates: result.Election.RemainingCandidates,
		Replayed:            result.Replayed,
	}, nil
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	electionID string,
	idempotencyKey string,
	req httptransport.CastBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID:     electionID,
		Weight:         req.Weight,
		Ranking:        req.Ranking,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		BallotID:   result.BallotID,
		ElectionID: electionID,
		Replayed:   result.Replayed,
	}, nil
}

func (h Handler) TabulateHandler(
	ctx context.Context,
	electionID string,
	idempotencyKey string,
) (httptransport.TabulateResponse, error) {
	result, err := h.Elections.Tabulate(ctx, commands.TabulateCommand{
		ElectionID:     electionID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.TabulateResponse{}, err
	}
	return httptransport.TabulateResponse{
		ElectionID:     result.Election.ElectionID,
		Status:         string(result.Election.Status),
		Winner:         result.Election.Winner,
		Rounds:         result.Election.Rounds,
		WinnerVotes:    result.Election.WinnerVotes,
		TotalVotes:     result.Election.TotalVotes,
		ExhaustedVotes: result.Election.ExhaustedVotes,
		Replayed:       result.Replayed,
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID string, seats int) (httptransport.ResultsResponse, error) {
	result, err := h.Results.Results(ctx, electionID, seats)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return httptransport.ResultsResponse{
		ElectionID:     result.ElectionID,
		Name:           result.Name,
		Status:         string(result.Status),
		Method:         result.Method,
		Winner:         result.Winner,
		Rounds:         result.Rounds,
		WinnerVotes:    result.WinnerVotes,
		TotalVotes:     result.TotalVotes,
		Seats:          result.Seats,
		DroopSatisfied: result.DroopSatisfied,
	}, nil
}

func (h Handler) FlowGraphHandler(ctx context.Context, electionID string) (httptransport.FlowGraphResponse, error) {
	doc, err := h.Results.FlowGraph(ctx, electionID)
	if err != nil {
		return httptransport.FlowGraphResponse{}, err
	}
	return httptransport.FlowGraphResponse{
		Sankey: mapSankeyDocument(doc.Sankey),
	}, nil
}

func (h Handler) SummaryHandler(ctx context.Context, electionID string) (httptransport.SummaryResponse, error) {
	summary, err := h.Results.Summary(ctx, electionID)
	if err != nil {
		return httptransport.SummaryResponse{}, err
	}
	return httptransport.SummaryResponse{
		ElectionID:          summary.ElectionID,
		Status:              string(summary.Status),
		TotalCandidates:     summary.TotalCandidates,
		TotalVotes:          summary.TotalVotes,
		RemainingCandidates: summary.RemainingCandidates,
		ExhaustedVotes:      summary.ExhaustedVotes,
	}, nil
}

func mapSankeyDocument(doc ports.SankeyDocument) httptransport.SankeyDocument {
	nodes := make([]httptransport.SankeyNode, 0, len(doc.Nodes))
	for _, node := range doc.Nodes {
		nodes = append(nodes, httptransport.SankeyNode{
			Name:  node.Name,
			Layer: node.Layer,
			Value: node.Value,
		})
	}
	links := make([]httptransport.SankeyLink, 0, len(doc.Links))
	for _, link := range doc.Links {
		links = append(links, httptransport.SankeyLink{
			Source: link.Source,
			Target: link.Target,
			Value:  link.Value,
		})
	}
	return httptransport.SankeyDocument{
		Nodes: nodes,
		Links: links,
	}
}
