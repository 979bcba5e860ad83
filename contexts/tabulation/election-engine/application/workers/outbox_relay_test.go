package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"ranked/contexts/tabulation/election-engine/adapters/memory"
	"ranked/contexts/tabulation/election-engine/ports"
)

type capturingPublisher struct {
	published []string
	failOn    string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failOn != "" && event.EventID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, topic+"/"+event.EventID)
	return nil
}

func appendEnvelope(t *testing.T, store *memory.Store, id string, at time.Time) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:      id,
		EventType:    "election.tabulated",
		OccurredAt:   at,
		PartitionKey: "e1",
	})
	if err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
}

func TestRunOncePublishesPendingAndMarksThem(t *testing.T) {
	store := memory.NewStore()
	base := time.Now().UTC()
	appendEnvelope(t, store, "ev1", base)
	appendEnvelope(t, store, "ev2", base.Add(time.Second))

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(publisher.published))
	}
	if publisher.published[0] != "election.tabulated/ev1" {
		t.Fatalf("expected oldest event first, got %s", publisher.published[0])
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows after relay, got %d", len(pending))
	}
}

func TestRunOnceStopsOnFirstPublishFailure(t *testing.T) {
	store := memory.NewStore()
	base := time.Now().UTC()
	appendEnvelope(t, store, "ev1", base)
	appendEnvelope(t, store, "ev2", base.Add(time.Second))
	appendEnvelope(t, store, "ev3", base.Add(2*time.Second))

	publisher := &capturingPublisher{failOn: "ev2"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 publish before the failure, got %d", len(publisher.published))
	}

	// ev1 is marked; ev2 and ev3 stay pending for the next cycle.
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows after failure, got %d", len(pending))
	}
	if pending[0].OutboxID != "ev2" {
		t.Fatalf("expected failed row still pending first, got %s", pending[0].OutboxID)
	}
}

func TestRunOnceWithEmptyOutboxIsNoOp(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected no publishes, got %d", len(publisher.published))
	}
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	store := memory.NewStore()
	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		appendEnvelope(t, store, string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
	}

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 2}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(publisher.published))
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 rows left for the next cycle, got %d", len(pending))
	}
}
