package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateElectionRequest struct {
	Name       string   `json:"name"`
	Candidates []string `json:"candidates"`
	Method     string   `json:"method,omitempty"`
	Seed       int64    `json:"seed,omitempty"`
}

type ElectionResponse struct {
	ElectionID          string   `json:"election_id"`
	Name                string   `json:"name"`
	Candidates          []string `json:"candidates"`
	Method              string   `json:"method"`
	Seed                int64    `json:"seed"`
	Status              string   `json:"status"`
	TotalCandidates     int      `json:"total_candidates"`
	RemainingCandidates int      `json:"remaining_candidates"`
	Replayed            bool     `json:"replayed"`
}

type CastBallotRequest struct {
	Weight  int      `json:"weight,omitempty"`
	Ranking []string `json:"ranking"`
}

type BallotResponse struct {
	BallotID   string `json:"ballot_id"`
	ElectionID string `json:"election_id"`
	Replayed   bool   `json:"replayed"`
}

type TabulateResponse struct {
	ElectionID     string `json:"election_id"`
	Status         string `json:"status"`
	Winner         string `json:"winner"`
	Rounds         int    `json:"rounds"`
	WinnerVotes    int    `json:"winner_votes"`
	TotalVotes     int    `json:"total_votes"`
	ExhaustedVotes int    `json:"exhausted_votes"`
	Replayed       bool   `json:"replayed"`
}

type ResultsResponse struct {
	ElectionID     string `json:"election_id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Method         string `json:"method"`
	Winner         string `json:"winner"`
	Rounds         int    `json:"rounds"`
	WinnerVotes    int    `json:"winner_votes"`
	TotalVotes     int    `json:"total_votes"`
	Seats          int    `json:"seats"`
	DroopSatisfied bool   `json:"droop_satisfied"`
}

type SankeyNode struct {
	Name  string `json:"name"`
	Layer int    `json:"layer"`
	Value int    `json:"value,omitempty"`
}

type SankeyLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

type SankeyDocument struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

type FlowGraphResponse struct {
	Sankey SankeyDocument `json:"sankey"`
}

type SummaryResponse struct {
	ElectionID          string `json:"election_id"`
	Status              string `json:"status"`
	TotalCandidates     int    `json:"total_candidates"`
	TotalVotes          int    `json:"total_votes"`
	RemainingCandidates int    `json:"remaining_candidates"`
	ExhaustedVotes      int    `json:"exhausted_votes"`
}
