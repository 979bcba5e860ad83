package electionengine

import (
	"log/slog"
	"time"

	httpadapter "ranked/contexts/tabulation/election-engine/adapters/http"
	"ranked/contexts/tabulation/election-engine/adapters/memory"
	"ranked/contexts/tabulation/election-engine/application/commands"
	"ranked/contexts/tabulation/election-engine/application/queries"
	"ranked/contexts/tabulation/election-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
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

func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Elections:      deps.Elections,
		Flows:          deps.Flows,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		Validator:      deps.Validator,
		Methods:        deps.Methods,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Elections: deps.Elections,
		Flows:     deps.Flows,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Results:   resultsUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections:      store,
		Flows:          store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
