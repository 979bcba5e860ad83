package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	electionengine "ranked/contexts/tabulation/election-engine"
	tabulationerrors "ranked/contexts/tabulation/election-engine/domain/errors"
	tabulationhttp "ranked/contexts/tabulation/election-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ranked/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	election electionengine.Module
}

func New(election electionengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		election: election,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/tabulate", s.handleTabulate)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/flow", s.handleFlowGraph)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/summary", s.handleSummary)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req tabulationhttp.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTabulationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.election.Handler.CreateElectionHandler(
		r.Context(),
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeTabulationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	var req tabulationhttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTabulationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.election.Handler.CastBallotHandler(
		r.Context(),
		r.PathValue("election_id"),
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeTabulationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleTabulate(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.TabulateHandler(
		r.Context(),
		r.PathValue("election_id"),
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writeTabulationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	seats := 1
	if seatsRaw := r.URL.Query().Get("seats"); seatsRaw != "" {
		parsed, err := strconv.Atoi(seatsRaw)
		if err != nil {
			writeTabulationError(w, http.StatusBadRequest, "invalid_seats", "seats must be an integer")
			return
		}
		seats = parsed
	}

	resp, err := s.election.Handler.ResultsHandler(r.Context(), r.PathValue("election_id"), seats)
	if err != nil {
		writeTabulationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFlowGraph(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.FlowGraphHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeTabulationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.SummaryHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeTabulationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeTabulationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tabulationerrors.ErrInvalidBallot):
		writeTabulationError(w, http.StatusBadRequest, "invalid_ballot", err.Error())
	case errors.Is(err, tabulationerrors.ErrNoCandidates),
		errors.Is(err, tabulationerrors.ErrDegenerateElection):
		writeTabulationError(w, http.StatusBadRequest, "no_candidates", err.Error())
	case errors.Is(err, tabulationerrors.ErrIdempotencyKeyRequired):
		writeTabulationError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, tabulationerrors.ErrElectionNotFound):
		writeTabulationError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, tabulationerrors.ErrFlowGraphNotFound):
		writeTabulationError(w, http.StatusNotFound, "flow_graph_not_found", err.Error())
	case errors.Is(err, tabulationerrors.ErrElectionClosed):
		writeTabulationError(w, http.StatusConflict, "election_closed", err.Error())
	case errors.Is(err, tabulationerrors.ErrConflict),
		errors.Is(err, tabulationerrors.ErrIdempotencyConflict):
		writeTabulationError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, tabulationerrors.ErrMethodUnsupported):
		writeTabulationError(w, http.StatusNotImplemented, "method_unsupported", err.Error())
	default:
		writeTabulationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTabulationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tabulationhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
