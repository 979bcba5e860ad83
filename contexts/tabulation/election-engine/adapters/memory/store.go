package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ranked/contexts/tabulation/election-engine/domain/entities"
	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
	"ranked/contexts/tabulation/election-engine/ports"

	"github.com/google/uuid"
)

type ballotRow struct {
	ballotID string
	ballot   entities.Ballot
}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter implementing every election-engine port.
// It backs tests and local wiring; the postgres adapter is the production
// counterpart.
type Store struct {
	mu sync.RWMutex

	elections   map[string]entities.Election
	ballots     map[string][]ballotRow
	flows       map[string]ports.SankeyExport
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		elections:   make(map[string]entities.Election),
		ballots:     make(map[string][]ballotRow),
		flows:       make(map[string]ports.SankeyExport),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
	}
}

func (s *Store) CreateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(election.ElectionID)
	if _, ok := s.elections[id]; ok {
		return domainerrors.ErrConflict
	}
	s.elections[id] = cloneElection(election)
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return cloneElection(election), nil
}

func (s *Store) UpdateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(election.ElectionID)
	if _, ok := s.elections[id]; !ok {
		return domainerrors.ErrElectionNotFound
	}
	s.elections[id] = cloneElection(election)
	return nil
}

func (s *Store) AppendBallot(_ context.Context, electionID string, ballotID string, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(electionID)
	if _, ok := s.elections[id]; !ok {
		return domainerrors.ErrElectionNotFound
	}
	s.ballots[id] = append(s.ballots[id], ballotRow{
		ballotID: strings.TrimSpace(ballotID),
		ballot: entities.Ballot{
			Weight:  ballot.Weight,
			Ranking: append([]string(nil), ballot.Ranking...),
		},
	})
	return nil
}

// ListBallots returns ballots in cast order; the slice order is the order
// rows were appended.
func (s *Store) ListBallots(_ context.Context, electionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.ballots[strings.TrimSpace(electionID)]
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Ballot{
			Weight:  row.ballot.Weight,
			Ranking: append([]string(nil), row.ballot.Ranking...),
		})
	}
	return items, nil
}

func (s *Store) SaveFlowGraph(_ context.Context, electionID string, doc ports.SankeyExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[strings.TrimSpace(electionID)] = doc
	return nil
}

func (s *Store) GetFlowGraph(_ context.Context, electionID string) (ports.SankeyExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.flows[strings.TrimSpace(electionID)]
	if !ok {
		return ports.SankeyExport{}, domainerrors.ErrFlowGraphNotFound
	}
	return doc, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.idempotency[strings.TrimSpace(key)]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && record.ExpiresAt.Before(now) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotency[strings.TrimSpace(record.Key)] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[event.EventID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    event.OccurredAt.UTC(),
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, record := range s.outbox {
		if record.published {
			continue
		}
		items = append(items, record.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	record.published = true
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

// Now implements ports.Clock.
func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

// NewID implements ports.IDGenerator.
func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneElection(election entities.Election) entities.Election {
	clone := election
	clone.Candidates = append([]string(nil), election.Candidates...)
	if election.TabulatedAt != nil {
		at := *election.TabulatedAt
		clone.TabulatedAt = &at
	}
	return clone
}
