package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ranked/contexts/tabulation/election-engine/domain/entities"
	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
	"ranked/contexts/tabulation/election-engine/ports"
)

func seedElection(t *testing.T, store *Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := store.CreateElection(context.Background(), entities.Election{
		ElectionID: id,
		Name:       "store test",
		Candidates: []string{"A", "B"},
		Method:     entities.MethodInstantRunoff,
		Status:     entities.ElectionStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("seed election failed: %v", err)
	}
}

func TestCreateElectionRejectsDuplicateID(t *testing.T) {
	store := NewStore()
	seedElection(t, store, "e1")

	err := store.CreateElection(context.Background(), entities.Election{ElectionID: "e1"})
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetElectionReturnsIsolatedCopy(t *testing.T) {
	store := NewStore()
	seedElection(t, store, "e1")

	first, err := store.GetElection(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	first.Candidates[0] = "mutated"

	second, err := store.GetElection(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if second.Candidates[0] != "A" {
		t.Fatalf("stored election was mutated through a returned copy")
	}
}

func TestListBallotsPreservesCastOrder(t *testing.T) {
	store := NewStore()
	seedElection(t, store, "e1")

	rankings := [][]string{{"A"}, {"B"}, {"A", "B"}, {"B", "A"}}
	for i, ranking := range rankings {
		err := store.AppendBallot(context.Background(), "e1", string(rune('a'+i)), entities.Ballot{
			Weight:  i + 1,
			Ranking: ranking,
		})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	ballots, err := store.ListBallots(context.Background(), "e1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ballots) != len(rankings) {
		t.Fatalf("expected %d ballots, got %d", len(rankings), len(ballots))
	}
	for i, ballot := range ballots {
		if ballot.Weight != i+1 {
			t.Fatalf("ballot %d out of cast order: weight %d", i, ballot.Weight)
		}
	}
}

func TestAppendBallotRequiresElection(t *testing.T) {
	store := NewStore()

	err := store.AppendBallot(context.Background(), "missing", "b1", entities.Ballot{Ranking: []string{"A"}})
	if !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound, got %v", err)
	}
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()
	err := store.Put(context.Background(), ports.IdempotencyRecord{
		Key:       "k1",
		EntityID:  "e1",
		ExpiresAt: now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, found, err := store.Get(context.Background(), "k1", now); err != nil || !found {
		t.Fatalf("expected live record, found=%v err=%v", found, err)
	}
	if _, found, err := store.Get(context.Background(), "k1", now.Add(2*time.Minute)); err != nil || found {
		t.Fatalf("expected expired record to be invisible, found=%v err=%v", found, err)
	}
}

func TestOutboxPendingAndPublishLifecycle(t *testing.T) {
	store := NewStore()
	base := time.Now().UTC()
	for i, id := range []string{"ev2", "ev1", "ev3"} {
		err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:    id,
			EventType:  "election.created",
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append outbox failed: %v", err)
		}
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending messages, got %d", len(pending))
	}
	if pending[0].OutboxID != "ev2" {
		t.Fatalf("expected oldest message first, got %s", pending[0].OutboxID)
	}

	if err := store.MarkOutboxPublished(context.Background(), "ev2", time.Now().UTC()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending after publish, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(context.Background(), "ghost", time.Now().UTC()); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict for unknown outbox id, got %v", err)
	}
}

func TestListPendingOutboxHonorsLimit(t *testing.T) {
	store := NewStore()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:    string(rune('a' + i)),
			EventType:  "election.ballot_cast",
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append outbox failed: %v", err)
		}
	}

	pending, err := store.ListPendingOutbox(context.Background(), 2)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(pending))
	}
}

func TestFlowGraphRoundTrip(t *testing.T) {
	store := NewStore()
	doc := ports.SankeyExport{
		Sankey: ports.SankeyDocument{
			Nodes: []ports.SankeyNode{{Name: "A", Layer: 1, Value: 4}},
			Links: []ports.SankeyLink{{Source: 0, Target: 0, Value: 4}},
		},
	}
	if err := store.SaveFlowGraph(context.Background(), "e1", doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.GetFlowGraph(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Sankey.Nodes) != 1 || got.Sankey.Nodes[0].Value != 4 {
		t.Fatalf("unexpected document: %+v", got)
	}

	if _, err := store.GetFlowGraph(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrFlowGraphNotFound) {
		t.Fatalf("expected ErrFlowGraphNotFound, got %v", err)
	}
}
