package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	application "ranked/contexts/tabulation/election-engine/application"
	"ranked/contexts/tabulation/election-engine/domain/entities"
	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
	"ranked/contexts/tabulation/election-engine/ports"
)

// CreateElectionCommand is the write-model input for opening an election.
// Seed zero means "derive one from the clock"; the derived seed is persisted
// so the tabulation stays reproducible either way.
type CreateElectionCommand struct {
	Name           string
	Candidates     []string
	Method         string
	Seed           int64
	IdempotencyKey string
}

type CreateElectionResult struct {
	Election entities.Election
	Replayed bool
}

// CastBallotCommand appends one weighted ranking to an open election.
type CastBallotCommand struct {
	ElectionID     string
	Weight         int
	Ranking        []string
	IdempotencyKey string
}

type CastBallotResult struct {
	BallotID string
	Replayed bool
}

// TabulateCommand runs the election's resolution method to completion.
type TabulateCommand struct {
	ElectionID     string
	IdempotencyKey string
}

type TabulateResult struct {
	Election entities.Election
	Replayed bool
}

// ElectionUseCase orchestrates the election lifecycle: open with a frozen
// candidate roster and seed, accept validated ballots while open, then run a
// single tabulation and persist its outcome and flow graph. All mutating
// operations are replay-safe via idempotency key + request hash.
type ElectionUseCase struct {
	Elections      ports.ElectionRepository
	Flows          ports.FlowExporter
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Validator      ports.BallotValidator
	Methods        []ports.ResolutionMethod
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateElection registers the candidate roster and resolution method and
// opens the election for ballots.
func (uc ElectionUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (CreateElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	logger.Info("election create started",
		"event", "tabulation_election_create_started",
		"module", "tabulation/election-engine",
		"layer", "application",
		"name", name,
		"method", cmd.Method,
	)

	candidates := normalizeCandidates(cmd.Candidates)
	if len(candidates) == 0 {
		return CreateElectionResult{}, domainerrors.ErrNoCandidates
	}
	method := strings.TrimSpace(cmd.Method)
	if method == "" {
		method = entities.MethodInstantRunoff
	}
	if _, err := uc.resolveMethod(method); err != nil {
		return CreateElectionResult{}, err
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CreateElectionResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashCreateElectionCommand(cmd, candidates, method)
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return CreateElectionResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return CreateElectionResult{}, domainerrors.ErrIdempotencyConflict
		}
		election, err := uc.Elections.GetElection(ctx, record.EntityID)
		if err != nil {
			return CreateElectionResult{}, err
		}
		return CreateElectionResult{Election: election, Replayed: true}, nil
	}

	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateElectionResult{}, err
	}
	seed := cmd.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	election := entities.Election{
		ElectionID:          electionID,
		Name:                name,
		Candidates:          candidates,
		Method:              method,
		Seed:                seed,
		Status:              entities.ElectionStatusOpen,
		TotalCandidates:     len(candidates),
		RemainingCandidates: len(candidates),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := uc.Elections.CreateElection(ctx, election); err != nil {
		return CreateElectionResult{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.created", election, now, map[string]any{
		"candidate_count": len(candidates),
		"method":          method,
	}); err != nil {
		return CreateElectionResult{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		EntityID:    electionID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return CreateElectionResult{}, err
	}

	logger.Info("election created",
		"event", "tabulation_election_created",
		"module", "tabulation/election-engine",
		"layer", "application",
		"election_id", electionID,
		"candidate_count", len(candidates),
		"method", method,
	)
	return CreateElectionResult{Election: election}, nil
}

// CastBallot validates and appends a ballot. The engine never validates, so
// everything the validator rejects stops here.
func (uc ElectionUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" {
		return CastBallotResult{}, domainerrors.ErrElectionNotFound
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CastBallotResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashCastBallotCommand(cmd, electionID)
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return CastBallotResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return CastBallotResult{}, domainerrors.ErrIdempotencyConflict
		}
		return CastBallotResult{BallotID: record.EntityID, Replayed: true}, nil
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !election.IsOpen() {
		return CastBallotResult{}, domainerrors.ErrElectionClosed
	}

	ballot := entities.Ballot{
		Weight:  cmd.Weight,
		Ranking: append([]string(nil), cmd.Ranking...),
	}
	if ballot.Weight == 0 {
		ballot.Weight = 1
	}
	validator := uc.Validator
	if validator == nil {
		validator = RankingValidator{}
	}
	if err := validator.Validate(ballot, election.Candidates); err != nil {
		logger.Warn("ballot rejected",
			"event", "tabulation_ballot_rejected",
			"module", "tabulation/election-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.Elections.AppendBallot(ctx, electionID, ballotID, ballot); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.ballot_cast", election, now, map[string]any{
		"ballot_id": ballotID,
		"weight":    ballot.Weight,
	}); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		EntityID:    ballotID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return CastBallotResult{}, err
	}

	logger.Info("ballot cast",
		"event", "tabulation_ballot_cast",
		"module", "tabulation/election-engine",
		"layer", "application",
		"election_id", electionID,
		"ballot_id", ballotID,
		"weight", ballot.Weight,
	)
	return CastBallotResult{BallotID: ballotID}, nil
}

// Tabulate rebuilds a fresh engine from the stored roster, seed and ballots,
// runs the election's resolution method, and persists the outcome together
// with the flow-graph export document. The election transitions open ->
// tabulated; on a resolution failure it is marked failed and the engine
// instance is discarded rather than reused.
func (uc ElectionUseCase) Tabulate(ctx context.Context, cmd TabulateCommand) (TabulateResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" {
		return TabulateResult{}, domainerrors.ErrElectionNotFound
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return TabulateResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashTabulateCommand(electionID)
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return TabulateResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return TabulateResult{}, domainerrors.ErrIdempotencyConflict
		}
		election, err := uc.Elections.GetElection(ctx, record.EntityID)
		if err != nil {
			return TabulateResult{}, err
		}
		return TabulateResult{Election: election, Replayed: true}, nil
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return TabulateResult{}, err
	}
	if !election.IsOpen() {
		return TabulateResult{}, domainerrors.ErrElectionClosed
	}
	method, err := uc.resolveMethod(election.Method)
	if err != nil {
		return TabulateResult{}, err
	}
	ballots, err := uc.Elections.ListBallots(ctx, electionID)
	if err != nil {
		return TabulateResult{}, err
	}

	tab := entities.NewTabulation(rand.New(rand.NewSource(election.Seed)))
	tab.AddCandidates(election.Candidates)
	for _, ballot := range ballots {
		tab.AddBallot(ballot)
	}

	winner, err := method.ResolveWinner(tab)
	if err != nil {
		election.Status = entities.ElectionStatusFailed
		election.UpdatedAt = now
		if saveErr := uc.Elections.UpdateElection(ctx, election); saveErr != nil {
			logger.Error("failed election save failed",
				"event", "tabulation_failed_state_save_failed",
				"module", "tabulation/election-engine",
				"layer", "application",
				"election_id", electionID,
				"error", saveErr.Error(),
			)
		}
		logger.Warn("tabulation failed",
			"event", "tabulation_run_failed",
			"module", "tabulation/election-engine",
			"layer", "application",
			"election_id", electionID,
			"method", election.Method,
			"error", err.Error(),
		)
		return TabulateResult{}, err
	}

	summary := tab.Summary()
	tabulatedAt := now
	election.Status = entities.ElectionStatusTabulated
	election.Winner = winner
	election.Rounds = tab.Rounds()
	election.TotalCandidates = summary.TotalCandidates
	election.TotalVotes = summary.TotalVotes
	election.WinnerVotes = tab.VotesFor(winner)
	election.ExhaustedVotes = summary.ExhaustedVotes
	election.RemainingCandidates = summary.RemainingCandidates
	election.UpdatedAt = now
	election.TabulatedAt = &tabulatedAt

	if err := uc.Flows.SaveFlowGraph(ctx, electionID, sankeyExport(tab.FlowGraph())); err != nil {
		return TabulateResult{}, err
	}
	if err := uc.Elections.UpdateElection(ctx, election); err != nil {
		return TabulateResult{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.tabulated", election, now, map[string]any{
		"winner":          winner,
		"rounds":          election.Rounds,
		"winner_votes":    election.WinnerVotes,
		"exhausted_votes": election.ExhaustedVotes,
	}); err != nil {
		return TabulateResult{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		EntityID:    electionID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return TabulateResult{}, err
	}

	logger.Info("election tabulated",
		"event", "tabulation_election_tabulated",
		"module", "tabulation/election-engine",
		"layer", "application",
		"election_id", electionID,
		"winner", winner,
		"rounds", election.Rounds,
		"exhausted_votes", election.ExhaustedVotes,
	)
	return TabulateResult{Election: election}, nil
}

func (uc ElectionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc ElectionUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func (uc ElectionUseCase) resolveMethod(name string) (ports.ResolutionMethod, error) {
	methods := uc.Methods
	if len(methods) == 0 {
		methods = defaultMethods()
	}
	for _, method := range methods {
		if method.Name() == name {
			return method, nil
		}
	}
	return nil, domainerrors.ErrMethodUnsupported
}

func (uc ElectionUseCase) appendElectionEvent(
	ctx context.Context,
	eventType string,
	election entities.Election,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"election_id": election.ElectionID,
		"status":      string(election.Status),
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	envelope, err := newTabulationEnvelope(eventID, eventType, election.ElectionID, occurredAt, payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func normalizeCandidates(names []string) []string {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return unique
}

func sankeyExport(graph *entities.FlowGraph) ports.SankeyExport {
	nodes := graph.Nodes()
	links := graph.Links()
	doc := ports.SankeyDocument{
		Nodes: make([]ports.SankeyNode, 0, len(nodes)),
		Links: make([]ports.SankeyLink, 0, len(links)),
	}
	for _, node := range nodes {
		doc.Nodes = append(doc.Nodes, ports.SankeyNode{
			Name:  node.Name,
			Layer: node.Layer,
			Value: node.Value,
		})
	}
	for _, link := range links {
		doc.Links = append(doc.Links, ports.SankeyLink{
			Source: link.Source,
			Target: link.Target,
			Value:  link.Value,
		})
	}
	return ports.SankeyExport{Sankey: doc}
}

func hashCreateElectionCommand(cmd CreateElectionCommand, candidates []string, method string) string {
	payload := map[string]string{
		"name":       strings.TrimSpace(cmd.Name),
		"candidates": strings.Join(candidates, "\x1f"),
		"method":     method,
		"seed":       strconv.FormatInt(cmd.Seed, 10),
		"op":         "create_election",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func hashCastBallotCommand(cmd CastBallotCommand, electionID string) string {
	payload := map[string]string{
		"election_id": electionID,
		"weight":      strconv.Itoa(cmd.Weight),
		"ranking":     strings.Join(cmd.Ranking, "\x1f"),
		"op":          "cast_ballot",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func hashTabulateCommand(electionID string) string {
	payload := map[string]string{
		"election_id": electionID,
		"op":          "tabulate",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
