package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ranked/contexts/tabulation/election-engine/domain/entities"
	domainerrors "ranked/contexts/tabulation/election-engine/domain/errors"
	"ranked/contexts/tabulation/election-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the gorm-backed adapter implementing the election-engine
// persistence ports.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tabulation_repo_create_election_failed", err,
			"election_id", election.ElectionID,
		)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("tabulation_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) UpdateElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":               row.Status,
			"winner":               row.Winner,
			"rounds":               row.Rounds,
			"total_candidates":     row.TotalCandidates,
			"total_votes":          row.TotalVotes,
			"winner_votes":         row.WinnerVotes,
			"exhausted_votes":      row.ExhaustedVotes,
			"remaining_candidates": row.RemainingCandidates,
			"updated_at":           row.UpdatedAt,
			"tabulated_at":         row.TabulatedAt,
		})
	if result.Error != nil {
		return r.logError("tabulation_repo_update_election_failed", result.Error,
			"election_id", row.ID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrElectionNotFound
	}
	return nil
}

func (r *Repository) AppendBallot(ctx context.Context, electionID string, ballotID string, ballot entities.Ballot) error {
	ranking, err := json.Marshal(ballot.Ranking)
	if err != nil {
		return err
	}
	row := ballotModel{
		BallotID:   strings.TrimSpace(ballotID),
		ElectionID: strings.TrimSpace(electionID),
		Weight:     ballot.Weight,
		Ranking:    ranking,
		CastAt:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tabulation_repo_append_ballot_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return nil
}

// ListBallots orders by the insert sequence, not timestamps: cast order must
// be stable for the engine's fixed-seed reproducibility.
func (r *Repository) ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "seq"}, Desc: false}).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("tabulation_repo_list_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, ballot)
	}
	return items, nil
}

func (r *Repository) SaveFlowGraph(ctx context.Context, electionID string, doc ports.SankeyExport) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	row := flowGraphModel{
		ElectionID: strings.TrimSpace(electionID),
		Document:   payload,
		CreatedAt:  time.Now().UTC(),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"document": row.Document,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("tabulation_repo_save_flow_graph_failed", err,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

func (r *Repository) GetFlowGraph(ctx context.Context, electionID string) (ports.SankeyExport, error) {
	var row flowGraphModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SankeyExport{}, domainerrors.ErrFlowGraphNotFound
		}
		return ports.SankeyExport{}, r.logError("tabulation_repo_get_flow_graph_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	var doc ports.SankeyExport
	if err := json.Unmarshal(row.Document, &doc); err != nil {
		return ports.SankeyExport{}, err
	}
	return doc, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		Where("expires_at > ?", now).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("tabulation_repo_idempotency_get_failed", err,
			"key", strings.TrimSpace(key),
		)
	}
	return row.toPort(), true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModelFromPort(record)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"request_hash": row.RequestHash,
			"entity_id":    row.EntityID,
			"expires_at":   row.ExpiresAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("tabulation_repo_idempotency_put_failed", err,
			"key", record.Key,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tabulation_repo_append_outbox_failed", err,
			"outbox_id", event.EventID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: false}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "outbox_id"}, Desc: false}).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("tabulation_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("tabulation_repo_mark_outbox_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "tabulation/election-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("postgres adapter operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type electionModel struct {
	ID                  string     `gorm:"column:id;primaryKey"`
	Name                string     `gorm:"column:name"`
	Candidates          []byte     `gorm:"column:candidates"`
	Method              string     `gorm:"column:method"`
	Seed                int64      `gorm:"column:seed"`
	Status              string     `gorm:"column:status"`
	Winner              string     `gorm:"column:winner"`
	Rounds              int        `gorm:"column:rounds"`
	TotalCandidates     int        `gorm:"column:total_candidates"`
	TotalVotes          int        `gorm:"column:total_votes"`
	WinnerVotes         int        `gorm:"column:winner_votes"`
	ExhaustedVotes      int        `gorm:"column:exhausted_votes"`
	RemainingCandidates int        `gorm:"column:remaining_candidates"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
	TabulatedAt         *time.Time `gorm:"column:tabulated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) (electionModel, error) {
	candidates, err := json.Marshal(election.Candidates)
	if err != nil {
		return electionModel{}, err
	}
	row := electionModel{
		ID:                  strings.TrimSpace(election.ElectionID),
		Name:                election.Name,
		Candidates:          candidates,
		Method:              election.Method,
		Seed:                election.Seed,
		Status:              string(election.Status),
		Winner:              election.Winner,
		Rounds:              election.Rounds,
		TotalCandidates:     election.TotalCandidates,
		TotalVotes:          election.TotalVotes,
		WinnerVotes:         election.WinnerVotes,
		ExhaustedVotes:      election.ExhaustedVotes,
		RemainingCandidates: election.RemainingCandidates,
		CreatedAt:           election.CreatedAt.UTC(),
		UpdatedAt:           election.UpdatedAt.UTC(),
	}
	if election.TabulatedAt != nil {
		at := election.TabulatedAt.UTC()
		row.TabulatedAt = &at
	}
	return row, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	var candidates []string
	if len(m.Candidates) > 0 {
		if err := json.Unmarshal(m.Candidates, &candidates); err != nil {
			return entities.Election{}, err
		}
	}
	election := entities.Election{
		ElectionID:          m.ID,
		Name:                m.Name,
		Candidates:          candidates,
		Method:              m.Method,
		Seed:                m.Seed,
		Status:              entities.ElectionStatus(m.Status),
		Winner:              m.Winner,
		Rounds:              m.Rounds,
		TotalCandidates:     m.TotalCandidates,
		TotalVotes:          m.TotalVotes,
		WinnerVotes:         m.WinnerVotes,
		ExhaustedVotes:      m.ExhaustedVotes,
		RemainingCandidates: m.RemainingCandidates,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
	if m.TabulatedAt != nil {
		at := m.TabulatedAt.UTC()
		election.TabulatedAt = &at
	}
	return election, nil
}

type ballotModel struct {
	Seq        int64     `gorm:"column:seq;primaryKey;autoIncrement"`
	BallotID   string    `gorm:"column:ballot_id;uniqueIndex"`
	ElectionID string    `gorm:"column:election_id;index"`
	Weight     int       `gorm:"column:weight"`
	Ranking    []byte    `gorm:"column:ranking"`
	CastAt     time.Time `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "election_ballots"
}

func (m ballotModel) toEntity() (entities.Ballot, error) {
	var ranking []string
	if len(m.Ranking) > 0 {
		if err := json.Unmarshal(m.Ranking, &ranking); err != nil {
			return entities.Ballot{}, err
		}
	}
	return entities.Ballot{
		Weight:  m.Weight,
		Ranking: ranking,
	}, nil
}

type flowGraphModel struct {
	ElectionID string    `gorm:"column:election_id;primaryKey"`
	Document   []byte    `gorm:"column:document"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (flowGraphModel) TableName() string {
	return "election_flow_graphs"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	EntityID    string    `gorm:"column:entity_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "tabulation_idempotency"
}

func idempotencyModelFromPort(record ports.IdempotencyRecord) idempotencyModel {
	return idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: record.RequestHash,
		EntityID:    record.EntityID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:         m.Key,
		RequestHash: m.RequestHash,
		EntityID:    m.EntityID,
		ExpiresAt:   m.ExpiresAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "tabulation_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}
