package ports

import (
	"context"
	"time"

	"ranked/contexts/tabulation/election-engine/domain/entities"
	"ranked/internal/shared/events"
)

// ElectionRepository owns election and ballot persistence. Ballots must come
// back from ListBallots in cast order: assignment order feeds the engine's
// link construction, so reordering would break fixed-seed reproducibility.
type ElectionRepository interface {
	CreateElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	UpdateElection(ctx context.Context, election entities.Election) error
	AppendBallot(ctx context.Context, electionID string, ballotID string, ballot entities.Ballot) error
	ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error)
}

// SankeyNode mirrors entities.FlowNode in the boundary export format. Value
// is present only for nodes in the first two layers.
type SankeyNode struct {
	Name  string `json:"name"`
	Layer int    `json:"layer"`
	Value int    `json:"value,omitempty"`
}

// SankeyLink references nodes by their index in the node list.
type SankeyLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

type SankeyDocument struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

// SankeyExport is the document handed to external visualization tooling.
type SankeyExport struct {
	Sankey SankeyDocument `json:"sankey"`
}

// FlowExporter persists the per-election flow-graph export document. The
// engine never consumes it; it exists for downstream visualization.
type FlowExporter interface {
	SaveFlowGraph(ctx context.Context, electionID string, doc SankeyExport) error
	GetFlowGraph(ctx context.Context, electionID string) (SankeyExport, error)
}

// BallotValidator is the validation capability invoked before a ballot
// reaches the engine. Implementations decide the exact shape constraints;
// the engine itself never validates.
type BallotValidator interface {
	Validate(ballot entities.Ballot, candidates []string) error
}

// ResolutionMethod is a named winner-resolution strategy over a prepared
// tabulation. Unsupported methods must fail loudly instead of falling back
// to instant-runoff.
type ResolutionMethod interface {
	Name() string
	ResolveWinner(tab *entities.Tabulation) (string, error)
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	EntityID    string
	ExpiresAt   time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// EventEnvelope reuses the canonical cross-process envelope contract.
type EventEnvelope = events.Envelope

// OutboxWriter appends an event to the module outbox alongside state changes.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// Clock allows deterministic testing of TTL and timestamp rules.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts election/ballot/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
